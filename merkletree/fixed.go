package merkletree

import (
	"fmt"

	"github.com/smtprovider/smt-provider/crypto"
)

// ComputeRoot returns the root of the fixed-depth tree holding ls. The
// tree is split recursively on the key bits from the most significant
// one; a lone entry is hashed up with default siblings.
func ComputeRoot(ls *LeafSet) (crypto.Hash, error) {
	if ls.Len() == 0 {
		return crypto.EmptyHash, ErrEmptyInput
	}
	return subtreeHash(ls.Entries(), ls.depth, 0), nil
}

// subtreeHash returns the hash of the subtree at height h (0 is the
// root) holding entries, which agree on the h most significant key bits.
func subtreeHash(entries []Entry, depth, h uint32) crypto.Hash {
	switch len(entries) {
	case 0:
		return crypto.EmptyHash
	case 1:
		return climb(entries[0].Key, entries[0].Value, depth-h)
	}
	split := splitIndex(entries, keyPad(depth)+h)
	return hashPair(
		subtreeHash(entries[:split], depth, h+1),
		subtreeHash(entries[split:], depth, h+1))
}

// climb hashes value from the leaf level up to level top, with a
// default sibling at every level.
func climb(key Key, value crypto.Hash, top uint32) crypto.Hash {
	computed := value
	for i := uint32(0); i < top && !computed.IsEmpty(); i++ {
		if key.Bit(i) {
			computed = hashInterior(crypto.EmptyHash, computed)
		} else {
			computed = hashInterior(computed, crypto.EmptyHash)
		}
	}
	return computed
}

// ProveKey returns the proof of key in the fixed-depth tree holding ls.
// key does not need to be in ls: replaying the proof with the default
// value then yields the root, which proves absence. A key outside the
// range of the tree fails with ErrKeyNotProvable.
func ProveKey(ls *LeafSet, key Key) (*Proof, error) {
	depth := ls.depth
	if !validKey(depth, key) {
		return nil, fmt.Errorf("%w: 0x%x does not fit %d bits", ErrKeyNotProvable, []byte(key), depth)
	}
	entries := ls.Entries()
	siblings := make([]*crypto.Hash, depth)

	// Narrow [lo, hi) to the entries sharing the key's prefix, one bit
	// at a time, and hash the other side at every level.
	lo, hi := 0, len(entries)
	for h := uint32(0); h < depth && lo < hi; h++ {
		level := depth - 1 - h
		split := lo + splitIndex(entries[lo:hi], keyPad(depth)+h)
		var other []Entry
		if key.Bit(level) {
			other, lo = entries[lo:split], split
		} else {
			other, hi = entries[split:hi], split
		}
		if len(other) > 0 {
			s := subtreeHash(other, depth, h+1)
			siblings[level] = &s
		}
	}

	proof := newProof(depth, key)
	for level, s := range siblings {
		if s != nil {
			proof.addSibling(uint32(level), *s)
		}
	}
	proof.Value, _ = ls.Get(key)
	return proof, nil
}
