package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// HashSizeByte is the size of a keccak-256 digest, which is also
	// the size of every leaf value and node hash in a tree.
	HashSizeByte = 32
	// HashID identifies the hash function.
	HashID = "KECCAK256"
)

var (
	// ErrInvalidHashLength indicates a hash or value which is not
	// exactly HashSizeByte bytes long.
	ErrInvalidHashLength = errors.New("[crypto] Invalid hash length")
	// ErrInvalidHashEncoding indicates a hex string which is not of
	// the form 0x followed by 64 hex digits.
	ErrInvalidHashEncoding = errors.New("[crypto] Invalid hash encoding")
)

// Hash is a 32-byte digest. It is used both for node hashes and for
// leaf values.
type Hash [HashSizeByte]byte

// EmptyHash is the all-zero value. It denotes the default leaf and the
// root of an empty subtree and is never a real stored value.
var EmptyHash Hash

// Digest hashes all passed byte slices with keccak-256 (the legacy
// Keccak padding used by Ethereum). The passed slices won't be mutated.
func Digest(ms ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, m := range ms {
		h.Write(m)
	}
	return h.Sum(nil)
}

// DigestHash is Digest returning a Hash.
func DigestHash(ms ...[]byte) Hash {
	var h Hash
	copy(h[:], Digest(ms...))
	return h
}

// HashFromBytes copies b into a Hash. It returns ErrInvalidHashLength
// if b is not exactly HashSizeByte bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSizeByte {
		return h, ErrInvalidHashLength
	}
	copy(h[:], b)
	return h, nil
}

// ParseHash decodes a 0x-prefixed, 64 hex digit string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*HashSizeByte {
		return h, ErrInvalidHashEncoding
	}
	if _, err := hex.Decode(h[:], []byte(s[2:])); err != nil {
		return h, ErrInvalidHashEncoding
	}
	return h, nil
}

// IsEmpty reports whether h is the all-zero value.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// Bytes returns a copy of h as a byte slice.
func (h Hash) Bytes() []byte {
	return append([]byte{}, h[:]...)
}

// Hex returns the 0x-prefixed hex encoding of h.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// MarshalText implements encoding.TextMarshaler so that hashes appear
// as hex strings in JSON messages.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
