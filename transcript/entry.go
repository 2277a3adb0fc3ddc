package transcript

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/polysensus/chaintrap-arenastate/names"
	"github.com/polysensus/chaintrap-arenastate/tokenid"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// Entry is a single transcript event as emitted by the arena contract.
type Entry struct {
	GameToken   tokenid.TokenID
	Code        names.Code
	Participant common.Address
	Block       uint64
	TxHash      common.Hash
	LogIndex    uint
	Data        []byte
}

// wireEntry is the rlp layout. Field order is part of the format.
type wireEntry struct {
	Token       *big.Int
	Code        uint64
	Participant common.Address
	Block       uint64
	TxHash      common.Hash
	LogIndex    uint64
	Data        []byte
}

// Name resolves the entry's event name.
func (e *Entry) Name() (string, error) {
	return names.NameOf(e.Code)
}

// Instance is the game instance number the entry belongs to.
func (e *Entry) Instance() (uint64, error) {
	return tokenid.GameInstance(e.GameToken)
}

// Encode returns the compact rlp form of an entry.
func Encode(e *Entry) ([]byte, error) {
	if _, err := e.Name(); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&wireEntry{
		Token:       e.GameToken.Big(),
		Code:        uint64(e.Code),
		Participant: e.Participant,
		Block:       e.Block,
		TxHash:      e.TxHash,
		LogIndex:    uint64(e.LogIndex),
		Data:        e.Data,
	})
}

// Decode parses the rlp form. Codes outside the registry are rejected.
func Decode(b []byte) (*Entry, error) {
	var w wireEntry
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return nil, fmt.Errorf("failed to decode transcript entry: %w", err)
	}
	if _, err := names.Default.NameOfInt(w.Code); err != nil {
		return nil, err
	}
	token, err := tokenid.FromBig(w.Token)
	if err != nil {
		return nil, err
	}
	return &Entry{
		GameToken:   token,
		Code:        names.Code(w.Code),
		Participant: w.Participant,
		Block:       w.Block,
		TxHash:      w.TxHash,
		LogIndex:    uint(w.LogIndex),
		Data:        w.Data,
	}, nil
}

/* =========================
   JSON VIEW
========================= */

type jsonEntry struct {
	Event       string          `json:"event"`
	Code        names.Code      `json:"code"`
	GameID      uint64          `json:"gid"`
	Token       tokenid.TokenID `json:"token"`
	Participant common.Address  `json:"participant"`
	Block       uint64          `json:"block"`
	TxHash      common.Hash     `json:"txHash"`
	LogIndex    uint            `json:"logIndex"`
	Data        string          `json:"data,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	name, err := e.Name()
	if err != nil {
		return nil, err
	}
	gid, err := e.Instance()
	if err != nil {
		return nil, err
	}
	out := jsonEntry{
		Event:       name,
		Code:        e.Code,
		GameID:      gid,
		Token:       e.GameToken,
		Participant: e.Participant,
		Block:       e.Block,
		TxHash:      e.TxHash,
		LogIndex:    e.LogIndex,
	}
	if len(e.Data) > 0 {
		out.Data = hexutil.Encode(e.Data)
	}
	return json.Marshal(out)
}
