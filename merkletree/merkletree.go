package merkletree

import (
	"fmt"

	"github.com/smtprovider/smt-provider/crypto"
)

// Tree is a hashed-key sparse Merkle tree over 160-bit keys. A subtree
// with only one non-empty side collapses to that side, so leaves sit
// right below the first bit which separates them from their neighbours.
// A Tree is immutable.
type Tree struct {
	leaves *LeafSet
	root   merkleNode
}

// NewTree builds the tree holding ls, which must be a LeafSet of depth
// HashedKeyBits. The result does not share state with ls.
func NewTree(ls *LeafSet) (*Tree, error) {
	if ls.depth != HashedKeyBits {
		return nil, fmt.Errorf("%w: hashed-key trees use %d-byte keys",
			ErrInvalidKey, KeySize(HashedKeyBits))
	}
	if ls.Len() == 0 {
		return nil, ErrEmptyInput
	}
	return &Tree{
		leaves: ls.Clone(),
		root:   buildNode(ls.Entries(), 0),
	}, nil
}

// buildNode returns the node holding entries, which agree on every key
// bit before offset.
func buildNode(entries []Entry, offset uint32) merkleNode {
	if len(entries) == 1 {
		return newLeafNode(entries[0].Key, entries[0].Value)
	}
	for ; offset < HashedKeyBits; offset++ {
		split := splitIndex(entries, offset)
		if split == 0 || split == len(entries) {
			// one side is empty, the parent is the other side
			continue
		}
		return newParentNode(offset,
			buildNode(entries[:split], offset+1),
			buildNode(entries[split:], offset+1))
	}
	panic(ErrInvalidTree)
}

// Root returns the root hash of the tree.
func (t *Tree) Root() crypto.Hash {
	return t.root.hash()
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return t.leaves.Len()
}

// Get returns the value stored at key.
func (t *Tree) Get(key Key) (crypto.Hash, bool) {
	return t.leaves.Get(key)
}

// LeafSet returns a copy of the leaves of the tree.
func (t *Tree) LeafSet() *LeafSet {
	return t.leaves.Clone()
}

// Prove returns the proof of key. If key is absent, the proof is the
// one of a tree which additionally holds (key, default value), of type
// ProofOfAbsence. Such a proof documents the path of key for a party
// that trusts the prover; VerifyTree only accepts proofs of inclusion.
func (t *Tree) Prove(key Key) (*Proof, error) {
	if !validKey(HashedKeyBits, key) {
		return nil, fmt.Errorf("%w: keys are %d bytes", ErrKeyNotProvable, KeySize(HashedKeyBits))
	}

	// siblings are found from the root down, levels count from the leaf
	type sibling struct {
		level uint32
		hash  crypto.Hash
	}
	var path []sibling
	add := func(offset uint32, h crypto.Hash) {
		path = append(path, sibling{HashedKeyBits - 1 - offset, h})
	}

	n, offset := t.root, uint32(0)
walk:
	for {
		switch nd := n.(type) {
		case *leafNode:
			if d, ok := firstDiff(nd.key, key, offset, HashedKeyBits); ok {
				add(d, nd.hash())
			}
			break walk
		case *parentNode:
			// any covered key carries the subtree's common prefix
			if d, ok := firstDiff(nd.maxKey(), key, offset, nd.offset); ok {
				add(d, nd.hash())
				break walk
			}
			if key.Bit(HashedKeyBits - 1 - nd.offset) {
				add(nd.offset, nd.left.hash())
				n = nd.right
			} else {
				add(nd.offset, nd.right.hash())
				n = nd.left
			}
			offset = nd.offset + 1
		default:
			panic(ErrInvalidTree)
		}
	}

	proof := newProof(HashedKeyBits, key)
	for i := len(path) - 1; i >= 0; i-- {
		proof.addSibling(path[i].level, path[i].hash)
	}
	proof.Value, _ = t.leaves.Get(key)
	return proof, nil
}
