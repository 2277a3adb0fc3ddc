package contract

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	arenaAddr = common.HexToAddress("0x80Fc067cDDCDE4a78199a7A6751F2f629654b93A")
	player    = common.HexToAddress("0x1234567890123456789012345678901234567890")
)

type fakeBackend struct {
	callOutput []byte
	logs       []types.Log
	head       uint64
	lastQuery  ethereum.FilterQuery
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return f.callOutput, nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.lastQuery = q
	return f.logs, nil
}

func (f *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func newTestArena(t *testing.T, backend *fakeBackend) *ArenaContract {
	t.Helper()
	arena, err := NewArenaReader(backend, arenaAddr)
	require.NoError(t, err)
	return arena
}

func transcriptLog(t *testing.T, arena *ArenaContract, gid tokenid.TokenID, kind uint8, data []byte) types.Log {
	t.Helper()
	event := arena.ABI.Events["TranscriptEntry"]
	payload, err := event.Inputs.NonIndexed().Pack(kind, data)
	require.NoError(t, err)
	return types.Log{
		Address: arenaAddr,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(gid.Big()),
			common.BytesToHash(player.Bytes()),
		},
		Data:        payload,
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xfeed"),
		Index:       2,
	}
}

func TestLastGame(t *testing.T) {
	backend := &fakeBackend{}
	arena := newTestArena(t, backend)

	out, err := arena.ABI.Methods["lastGame"].Outputs.Pack(big.NewInt(18))
	require.NoError(t, err)
	backend.callOutput = out

	n, err := arena.LastGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(18), n)

	token, err := arena.LastGameToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x0400000000000000000000000000000012", token.Hex())
}

func TestDecodeTranscriptLog(t *testing.T) {
	arena := newTestArena(t, &fakeBackend{})

	l := transcriptLog(t, arena, tokenid.GameToken(18), uint8(names.UseExit), []byte{0xaa})
	entry, err := arena.DecodeLog(l)
	require.NoError(t, err)

	assert.Equal(t, names.UseExit, entry.Code)
	assert.True(t, entry.GameToken.Equal(tokenid.GameToken(18)))
	assert.Equal(t, player, entry.Participant)
	assert.Equal(t, uint64(100), entry.Block)
	assert.Equal(t, uint(2), entry.LogIndex)
	assert.Equal(t, []byte{0xaa}, entry.Data)
}

func TestDecodeGameCreatedLog(t *testing.T) {
	arena := newTestArena(t, &fakeBackend{})
	event := arena.ABI.Events["GameCreated"]
	payload, err := event.Inputs.NonIndexed().Pack(big.NewInt(5))
	require.NoError(t, err)

	entry, err := arena.DecodeLog(types.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(tokenid.GameToken(3).Big()),
			common.BytesToHash(player.Bytes()),
		},
		Data: payload,
	})
	require.NoError(t, err)
	assert.Equal(t, names.GameCreated, entry.Code)
	assert.Equal(t, int64(5), new(big.Int).SetBytes(entry.Data).Int64())

	gid, err := entry.Instance()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), gid)
}

func TestDecodeLogRejects(t *testing.T) {
	arena := newTestArena(t, &fakeBackend{})

	// unknown event kind
	l := transcriptLog(t, arena, tokenid.GameToken(1), 200, nil)
	_, err := arena.DecodeLog(l)
	assert.ErrorIs(t, err, names.ErrUnknownCode)

	// token id with a foreign type tag
	foreign, err := tokenid.FromBig(new(big.Int).Lsh(big.NewInt(2), 128))
	require.NoError(t, err)
	l = transcriptLog(t, arena, foreign, uint8(names.UseExit), nil)
	_, err = arena.DecodeLog(l)
	assert.ErrorIs(t, err, tokenid.ErrWrongTypeTag)

	// wrong topic count
	_, err = arena.DecodeLog(types.Log{Topics: []common.Hash{{}}})
	assert.ErrorIs(t, err, ErrUnknownLog)

	// unrelated event signature
	l = transcriptLog(t, arena, tokenid.GameToken(1), uint8(names.UseExit), nil)
	l.Topics[0] = common.HexToHash("0x01")
	_, err = arena.DecodeLog(l)
	assert.ErrorIs(t, err, ErrUnknownLog)
}

func TestDecodeLogRejectsMismatchedPayload(t *testing.T) {
	// a deployment whose event widened kind to uint16
	drifted := strings.Replace(ArenaABI, `"name":"kind","type":"uint8"`, `"name":"kind","type":"uint16"`, 1)
	require.NotEqual(t, ArenaABI, drifted)
	parsed, err := abi.JSON(strings.NewReader(drifted))
	require.NoError(t, err)

	arena := newTestArena(t, &fakeBackend{})
	arena.ABI = parsed

	event := parsed.Events["TranscriptEntry"]
	payload, err := event.Inputs.NonIndexed().Pack(uint16(names.UseExit), []byte{0x01})
	require.NoError(t, err)

	_, err = arena.DecodeLog(types.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(tokenid.GameToken(1).Big()),
			common.BytesToHash(player.Bytes()),
		},
		Data: payload,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected TranscriptEntry kind")
}

func TestFilterTranscriptSkipsBadLogs(t *testing.T) {
	backend := &fakeBackend{}
	arena := newTestArena(t, backend)

	good := transcriptLog(t, arena, tokenid.GameToken(7), uint8(names.TranscriptPlayerVictory), nil)
	bad := transcriptLog(t, arena, tokenid.GameToken(7), 250, nil)
	removed := transcriptLog(t, arena, tokenid.GameToken(7), uint8(names.UseExit), nil)
	removed.Removed = true
	backend.logs = []types.Log{good, bad, removed}

	entries, err := arena.FilterTranscript(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, names.TranscriptPlayerVictory, entries[0].Code)

	assert.Equal(t, int64(10), backend.lastQuery.FromBlock.Int64())
	assert.Equal(t, int64(20), backend.lastQuery.ToBlock.Int64())
	assert.Equal(t, []common.Address{arenaAddr}, backend.lastQuery.Addresses)
}
