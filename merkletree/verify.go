package merkletree

import (
	"fmt"

	"github.com/smtprovider/smt-provider/crypto"
)

// Verify computes the root of a fixed-depth tree of the given depth from
// a packed proof of key holding value. The caller compares the result
// with a published root: equality proves inclusion, or absence when
// value is the default value.
func Verify(depth uint32, key Key, value crypto.Hash, proof []byte) (crypto.Hash, error) {
	if err := CheckDepth(depth); err != nil {
		return crypto.EmptyHash, err
	}
	if !validKey(depth, key) {
		return crypto.EmptyHash, fmt.Errorf("%w: 0x%x does not fit %d bits", ErrInvalidKey, []byte(key), depth)
	}
	p, err := DecodeProof(depth, proof)
	if err != nil {
		return crypto.EmptyHash, err
	}
	return p.ComputeRoot(key, value), nil
}

// VerifyHex is Verify for a 0x-prefixed hex proof.
func VerifyHex(depth uint32, key Key, value crypto.Hash, proof string) (crypto.Hash, error) {
	p, err := ParseProof(depth, proof)
	if err != nil {
		return crypto.EmptyHash, err
	}
	return Verify(depth, key, value, p.Bytes())
}

// VerifyTree computes the root of a hashed-key tree from a packed proof
// of key holding value. Only inclusion can be verified: interior hashes
// of a hashed-key tree do not commit to the level they sit at, so the
// sibling of a present key could be passed off as proof that the key is
// absent. The default value is therefore rejected with ErrInvalidValue.
func VerifyTree(key Key, value crypto.Hash, proof []byte) (crypto.Hash, error) {
	if !validKey(HashedKeyBits, key) {
		return crypto.EmptyHash, fmt.Errorf("%w: keys are %d bytes", ErrInvalidKey, KeySize(HashedKeyBits))
	}
	if value.IsEmpty() {
		return crypto.EmptyHash, fmt.Errorf("%w: absence cannot be verified in a hashed-key tree", ErrInvalidValue)
	}
	p, err := DecodeProof(HashedKeyBits, proof)
	if err != nil {
		return crypto.EmptyHash, err
	}
	return p.ComputeTreeRoot(key, value), nil
}

// VerifyInclusion reports whether the proof of key holding value
// resolves to root in a fixed-depth tree.
func VerifyInclusion(depth uint32, root crypto.Hash, key Key, value crypto.Hash, proof []byte) (bool, error) {
	computed, err := Verify(depth, key, value, proof)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}
