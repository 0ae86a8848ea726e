package merkletree

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/smtprovider/smt-provider/utils"
)

const (
	// MinDepth is the smallest supported tree depth.
	MinDepth = 8
	// MaxDepth is the largest supported tree depth.
	MaxDepth = 256
	// HashedKeyBits is the depth of a hashed-key tree.
	HashedKeyBits = 160
)

// Key addresses a leaf. It is the big-endian encoding of the leaf index
// and is always KeySize(depth) bytes long.
type Key []byte

// KeySize returns the byte length of keys, and of proof bitmaps, of a
// tree with the given depth.
func KeySize(depth uint32) int {
	return int((depth + 7) / 8)
}

// CheckDepth returns ErrInvalidDepth unless MinDepth <= depth <= MaxDepth.
func CheckDepth(depth uint32) error {
	if depth < MinDepth || depth > MaxDepth {
		return fmt.Errorf("%w: %d is not in [%d, %d]", ErrInvalidDepth, depth, MinDepth, MaxDepth)
	}
	return nil
}

// keyPad is the number of unused most significant bits of a key.
func keyPad(depth uint32) uint32 {
	return uint32(8*KeySize(depth)) - depth
}

func validKey(depth uint32, b []byte) bool {
	if len(b) != KeySize(depth) {
		return false
	}
	pad := keyPad(depth)
	return pad == 0 || b[0]>>(8-pad) == 0
}

// NewKey copies b into a Key of a tree with the given depth.
func NewKey(depth uint32, b []byte) (Key, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	if !validKey(depth, b) {
		return nil, fmt.Errorf("%w: 0x%x does not fit %d bits", ErrInvalidKey, b, depth)
	}
	return append(Key{}, b...), nil
}

// KeyFromBig converts the index n into a Key of a tree with the given
// depth.
func KeyFromBig(depth uint32, n *big.Int) (Key, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	if n.Sign() < 0 || n.BitLen() > int(depth) {
		return nil, fmt.Errorf("%w: %s is not in [0, 2^%d)", ErrInvalidKey, n, depth)
	}
	return n.FillBytes(make(Key, KeySize(depth))), nil
}

// KeyFromUint64 is KeyFromBig for small indices.
func KeyFromUint64(depth uint32, n uint64) (Key, error) {
	return KeyFromBig(depth, new(big.Int).SetUint64(n))
}

// ParseKey parses an index given either as a 0x-prefixed hex number or
// as a decimal number.
func ParseKey(depth uint32, s string) (Key, error) {
	n, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) > 2 {
			_, ok = n.SetString(s[2:], 16)
		}
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse %q", ErrInvalidKey, s)
	}
	return KeyFromBig(depth, n)
}

// Big returns the index addressed by k.
func (k Key) Big() *big.Int {
	return new(big.Int).SetBytes(k)
}

// Bit reports whether bit i of the index, counting from the least
// significant bit, is set. Bit i selects the side taken at level i.
func (k Key) Bit(i uint32) bool {
	return utils.GetBitLSB(k, i)
}

// Hex returns the 0x-prefixed hex encoding of k.
func (k Key) Hex() string {
	return "0x" + hex.EncodeToString(k)
}

func (k Key) String() string {
	return k.Hex()
}
