// Package keccak implements the keccak-256 tree hashing strategy
// which is compatible with the EVM: interior nodes hash as
// keccak256(left || right) and keyed leaves as keccak256(key || value).
package keccak

import (
	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/crypto/hashers"
)

func init() {
	hashers.RegisterHasher(Keccak256, New)
}

// Keccak256 is the identity of the keccak-256 hashing strategy.
const Keccak256 = crypto.HashID

type hasher struct{}

// New returns an instance of the keccak-256 hasher.
func New() hashers.TreeHasher {
	return hasher{}
}

func (hasher) ID() string {
	return Keccak256
}

func (hasher) Size() int {
	return crypto.HashSizeByte
}

func (hasher) Digest(ms ...[]byte) []byte {
	return crypto.Digest(ms...)
}

// HashInterior computes the hash of an interior node as: H(left || right).
func (h hasher) HashInterior(left, right []byte) []byte {
	return h.Digest(left, right)
}

// HashLeaf computes the commitment of a leaf as: H(key || value).
func (h hasher) HashLeaf(key, value []byte) []byte {
	return h.Digest(key, value)
}
