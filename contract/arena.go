package contract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ArenaABI is the read side of the arena contract: the instance counter and
// the two events the indexer follows.
const ArenaABI = `[
	{"type":"function","name":"lastGame","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"GameCreated","anonymous":false,"inputs":[
		{"name":"gid","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"maxParticipants","type":"uint256","indexed":false}]},
	{"type":"event","name":"TranscriptEntry","anonymous":false,"inputs":[
		{"name":"gid","type":"uint256","indexed":true},
		{"name":"participant","type":"address","indexed":true},
		{"name":"kind","type":"uint8","indexed":false},
		{"name":"data","type":"bytes","indexed":false}]}
]`

var ErrUnknownLog = errors.New("log is not an arena event")

// Backend is the subset of ethclient the reader needs.
type Backend interface {
	ethereum.ContractCaller
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// ArenaContract reads game state and transcript logs from the arena
// contract. It never signs or sends transactions.
type ArenaContract struct {
	Backend Backend
	ABI     abi.ABI
	Address common.Address

	client *ethclient.Client
}

// NewArenaContract dials the configured RPC endpoint.
func NewArenaContract(ctx context.Context, cfg *config.Config) (*ArenaContract, error) {
	if !common.IsHexAddress(cfg.ArenaAddress) {
		return nil, fmt.Errorf("ARENA_ADDRESS is not a valid address: %q", cfg.ArenaAddress)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: expected %d, node reports %s", cfg.ChainID, chainID)
	}

	arena, err := NewArenaReader(client, common.HexToAddress(cfg.ArenaAddress))
	if err != nil {
		client.Close()
		return nil, err
	}
	arena.client = client

	log.Printf("✅ Arena contract reader initialized - Address: %s, Chain: %d", cfg.ArenaAddress, cfg.ChainID)
	return arena, nil
}

// NewArenaReader binds an existing backend.
func NewArenaReader(backend Backend, address common.Address) (*ArenaContract, error) {
	contractABI, err := abi.JSON(strings.NewReader(ArenaABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return &ArenaContract{
		Backend: backend,
		ABI:     contractABI,
		Address: address,
	}, nil
}

/* =========================
   CONTRACT CALLS
========================= */

// LastGame returns the contract's game instance counter.
func (c *ArenaContract) LastGame(ctx context.Context) (uint64, error) {
	input, err := c.ABI.Pack("lastGame")
	if err != nil {
		return 0, fmt.Errorf("failed to pack input: %w", err)
	}

	output, err := c.Backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.Address,
		Data: input,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("lastGame call failed: %w", err)
	}

	values, err := c.ABI.Unpack("lastGame", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack lastGame: %w", err)
	}
	n, ok := values[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("%w: lastGame returned %v", tokenid.ErrInstanceOverflow, values[0])
	}
	return n.Uint64(), nil
}

// LastGameToken returns the token id of the most recent game.
func (c *ArenaContract) LastGameToken(ctx context.Context) (tokenid.TokenID, error) {
	n, err := c.LastGame(ctx)
	if err != nil {
		return tokenid.TokenID{}, err
	}
	return tokenid.GameToken(n), nil
}

// BlockNumber returns the chain head.
func (c *ArenaContract) BlockNumber(ctx context.Context) (uint64, error) {
	return c.Backend.BlockNumber(ctx)
}

/* =========================
   LOG DECODING
========================= */

// FilterTranscript fetches and decodes arena events in [from, to].
// Logs that fail to decode are skipped and logged.
func (c *ArenaContract) FilterTranscript(ctx context.Context, from, to uint64) ([]*transcript.Entry, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.Address},
		Topics: [][]common.Hash{{
			c.ABI.Events["GameCreated"].ID,
			c.ABI.Events["TranscriptEntry"].ID,
		}},
	}

	logs, err := c.Backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs [%d, %d]: %w", from, to, err)
	}

	entries := make([]*transcript.Entry, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		entry, err := c.DecodeLog(l)
		if err != nil {
			log.Printf("⚠️  Skipping log %s:%d: %v", l.TxHash.Hex(), l.Index, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DecodeLog turns a raw arena log into a transcript entry.
func (c *ArenaContract) DecodeLog(l types.Log) (*transcript.Entry, error) {
	if len(l.Topics) != 3 {
		return nil, fmt.Errorf("%w: %d topics", ErrUnknownLog, len(l.Topics))
	}

	gid, err := tokenid.FromBig(new(big.Int).SetBytes(l.Topics[1].Bytes()))
	if err != nil {
		return nil, err
	}
	if _, err := tokenid.GameInstance(gid); err != nil {
		return nil, err
	}

	entry := &transcript.Entry{
		GameToken:   gid,
		Participant: common.BytesToAddress(l.Topics[2].Bytes()),
		Block:       l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}

	switch l.Topics[0] {
	case c.ABI.Events["GameCreated"].ID:
		values, err := c.ABI.Unpack("GameCreated", l.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack GameCreated: %w", err)
		}
		maxParticipants, ok := values[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected GameCreated payload %T", values[0])
		}
		entry.Code = names.GameCreated
		entry.Data = common.LeftPadBytes(maxParticipants.Bytes(), 32)

	case c.ABI.Events["TranscriptEntry"].ID:
		values, err := c.ABI.Unpack("TranscriptEntry", l.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack TranscriptEntry: %w", err)
		}
		kind, ok := values[0].(uint8)
		if !ok {
			return nil, fmt.Errorf("unexpected TranscriptEntry kind %T", values[0])
		}
		data, ok := values[1].([]byte)
		if !ok {
			return nil, fmt.Errorf("unexpected TranscriptEntry data %T", values[1])
		}
		if _, err := names.NameOf(names.Code(kind)); err != nil {
			return nil, err
		}
		entry.Code = names.Code(kind)
		entry.Data = data

	default:
		return nil, fmt.Errorf("%w: topic %s", ErrUnknownLog, l.Topics[0].Hex())
	}

	return entry, nil
}

// Close closes the client connection
func (c *ArenaContract) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
