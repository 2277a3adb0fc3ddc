package tokenid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

/* =========================
   TOKEN LAYOUT
========================= */

// Token ids pack an asset type tag into the high 128 bits and the
// instance number into the low 128 bits: (tag << 128) | instance.
const (
	TypeTag  = 4
	TagShift = 128
)

var (
	ErrWrongTypeTag     = errors.New("token id does not carry the game type tag")
	ErrInstanceOverflow = errors.New("instance number does not fit in uint64")
	ErrInstanceTooLarge = errors.New("instance number overflows into the type tag bits")
	ErrInvalidTokenID   = errors.New("invalid token id")
)

var (
	// TypeTag << 128, the token id of instance zero
	gameTypeBase = new(uint256.Int).Lsh(uint256.NewInt(TypeTag), TagShift)

	instanceLimit = new(uint256.Int).Lsh(uint256.NewInt(1), TagShift)
)

// TokenID is a 256 bit asset id as used by the arena contract.
type TokenID struct {
	v uint256.Int
}

// FromUint256 wraps a uint256 value.
func FromUint256(x *uint256.Int) TokenID {
	var id TokenID
	id.v.Set(x)
	return id
}

// FromBig converts a big.Int, failing if it is negative or wider than 256 bits.
func FromBig(x *big.Int) (TokenID, error) {
	if x == nil || x.Sign() < 0 {
		return TokenID{}, fmt.Errorf("%w: negative or nil", ErrInvalidTokenID)
	}
	v, overflow := uint256.FromBig(x)
	if overflow {
		return TokenID{}, fmt.Errorf("%w: wider than 256 bits", ErrInvalidTokenID)
	}
	return FromUint256(v), nil
}

// ParseTokenID accepts 0x prefixed hex or a decimal string. Leading zeros
// are allowed in both forms.
func ParseTokenID(s string) (TokenID, error) {
	s = strings.TrimSpace(s)
	x := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = x.SetString(s[2:], 16)
	} else {
		_, ok = x.SetString(s, 10)
	}
	if !ok {
		return TokenID{}, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	return FromBig(x)
}

// Uint256 returns a copy of the underlying value.
func (id TokenID) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&id.v)
}

// Big returns the id as a big.Int, the form abi packing expects.
func (id TokenID) Big() *big.Int {
	return id.v.ToBig()
}

// Hex returns the byte aligned hex form, e.g. 0x0400...0012 for game 18.
func (id TokenID) Hex() string {
	if id.v.IsZero() {
		return "0x00"
	}
	return hexutil.Encode(id.v.Bytes())
}

// String returns the decimal form.
func (id TokenID) String() string {
	return id.v.Dec()
}

// Tag returns the high 128 bits, the asset type tag.
func (id TokenID) Tag() uint64 {
	tag := new(uint256.Int).Rsh(&id.v, TagShift)
	// the tag space is 128 bits but every tag in use is tiny
	if !tag.IsUint64() {
		return ^uint64(0)
	}
	return tag.Uint64()
}

// Equal reports whether both ids have the same value.
func (id TokenID) Equal(other TokenID) bool {
	return id.v.Eq(&other.v)
}

func (id TokenID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

func (id *TokenID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTokenID, err)
	}
	parsed, err := ParseTokenID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

/* =========================
   GAME TOKENS
========================= */

// GameTypeBase returns TypeTag << 128.
func GameTypeBase() TokenID {
	return FromUint256(gameTypeBase)
}

// GameToken returns the token id of game instance n. A uint64 can never
// reach the tag bits so this cannot fail.
func GameToken(instance uint64) TokenID {
	var id TokenID
	id.v.Add(gameTypeBase, uint256.NewInt(instance))
	return id
}

// GameTokenFromBig is GameToken for instance numbers read off chain as
// uint256. Instances of 2^128 or more are rejected.
func GameTokenFromBig(instance *big.Int) (TokenID, error) {
	n, err := FromBig(instance)
	if err != nil {
		return TokenID{}, err
	}
	if !n.v.Lt(instanceLimit) {
		return TokenID{}, fmt.Errorf("%w: %s", ErrInstanceTooLarge, n.String())
	}
	var id TokenID
	id.v.Add(gameTypeBase, &n.v)
	return id, nil
}

// GameInstance recovers the instance number from a game token id.
func GameInstance(id TokenID) (uint64, error) {
	if tag := id.Tag(); tag != TypeTag {
		return 0, fmt.Errorf("%w: got tag %d", ErrWrongTypeTag, tag)
	}
	return RawGameInstance(id)
}

// RawGameToken adds the type base with no bound check, wrapping modulo
// 2^256. Instances of 2^128 or more silently corrupt the tag.
func RawGameToken(instance *uint256.Int) TokenID {
	var id TokenID
	id.v.Add(gameTypeBase, instance)
	return id
}

// RawGameInstance subtracts the type base without checking the tag. Only
// the conversion to uint64 is checked.
func RawGameInstance(id TokenID) (uint64, error) {
	diff, underflow := new(uint256.Int).SubOverflow(&id.v, gameTypeBase)
	if underflow || !diff.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrInstanceOverflow, id.Hex())
	}
	return diff.Uint64(), nil
}
