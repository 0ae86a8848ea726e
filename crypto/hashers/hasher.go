// Package hashers provides the tree hashing strategies used to derive
// node hashes and leaf commitments of a sparse Merkle tree.
package hashers

import (
	"fmt"
)

// TreeHasher provides hash functions for the tree implementations,
// and defines the way interior node hashes and leaf commitments of
// the underlying tree are constructed.
type TreeHasher interface {
	// ID returns the name of the cryptographic hash function.
	ID() string
	// Size returns the size of the hash output in bytes.
	Size() int
	// Digest provides a universal hash function which
	// hashes all passed byte slices. The passed slices won't be mutated.
	Digest(ms ...[]byte) []byte

	// HashInterior computes the hash of an interior node.
	HashInterior(left, right []byte) []byte

	// HashLeaf computes the commitment of a keyed leaf.
	HashLeaf(key, value []byte) []byte
}

var hashers = make(map[string]TreeHasher)

// RegisterHasher registers a hasher for use.
func RegisterHasher(h string, f func() TreeHasher) {
	if _, ok := hashers[h]; ok {
		panic(fmt.Sprintf("%s is already registered", h))
	}
	hashers[h] = f()
}

// NewTreeHasher returns a registered TreeHasher identified by the given string.
// If no such TreeHasher exists, it returns an error.
func NewTreeHasher(h string) (TreeHasher, error) {
	if f, ok := hashers[h]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%s is an unknown hasher", h)
}
