package merkletree

import (
	"fmt"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/utils"
)

// FixedTree is a fixed-depth tree which keeps the hash of every
// non-default node, indexed by level and by position within the level.
// The position of a node at level j is its leftmost leaf index shifted
// right by j bits. Set rehashes only the nodes on the path from the
// updated leaf to the root.
//
// FixedTree is not safe for concurrent mutation.
type FixedTree struct {
	depth  uint32
	levels []map[string]crypto.Hash
}

// NewFixedTree returns an empty tree of the given depth.
func NewFixedTree(depth uint32) (*FixedTree, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	levels := make([]map[string]crypto.Hash, depth+1)
	for i := range levels {
		levels[i] = make(map[string]crypto.Hash)
	}
	return &FixedTree{depth: depth, levels: levels}, nil
}

// NewFixedTreeFromLeafSet returns the tree holding ls.
func NewFixedTreeFromLeafSet(ls *LeafSet) *FixedTree {
	t, _ := NewFixedTree(ls.depth)
	for _, e := range ls.Entries() {
		t.set(e.Key, e.Value)
	}
	return t
}

// Depth returns the depth of the tree.
func (t *FixedTree) Depth() uint32 {
	return t.depth
}

// Len returns the number of non-default leaves.
func (t *FixedTree) Len() int {
	return len(t.levels[0])
}

// Root returns the root hash, which is the default value for an empty
// tree.
func (t *FixedTree) Root() crypto.Hash {
	return t.levels[t.depth][string(make([]byte, KeySize(t.depth)))]
}

// Get returns the value stored at key.
func (t *FixedTree) Get(key Key) (crypto.Hash, bool) {
	v, ok := t.levels[0][string(key)]
	return v, ok
}

// Set stores value at key and updates the hashes up to the root.
// Setting the default value deletes the key.
func (t *FixedTree) Set(key Key, value crypto.Hash) error {
	if !validKey(t.depth, key) {
		return fmt.Errorf("%w: 0x%x does not fit %d bits", ErrInvalidKey, []byte(key), t.depth)
	}
	t.set(key, value)
	return nil
}

func (t *FixedTree) set(key Key, value crypto.Hash) {
	pos := []byte(key)
	computed := value
	for level := uint32(0); level < t.depth; level++ {
		t.store(level, pos, computed)
		sibling := t.levels[level][string(siblingPosition(pos))]
		if utils.GetBitLSB(pos, 0) {
			computed = hashPair(sibling, computed)
		} else {
			computed = hashPair(computed, sibling)
		}
		pos = utils.ShiftRight(pos)
	}
	t.store(t.depth, pos, computed)
}

func (t *FixedTree) store(level uint32, pos []byte, h crypto.Hash) {
	if h.IsEmpty() {
		delete(t.levels[level], string(pos))
		return
	}
	t.levels[level][string(pos)] = h
}

// Prove returns the proof of key, which does not need to be stored.
func (t *FixedTree) Prove(key Key) (*Proof, error) {
	if !validKey(t.depth, key) {
		return nil, fmt.Errorf("%w: 0x%x does not fit %d bits", ErrKeyNotProvable, []byte(key), t.depth)
	}
	proof := newProof(t.depth, key)
	pos := []byte(key)
	for level := uint32(0); level < t.depth; level++ {
		if h, ok := t.levels[level][string(siblingPosition(pos))]; ok {
			proof.addSibling(level, h)
		}
		pos = utils.ShiftRight(pos)
	}
	proof.Value, _ = t.Get(key)
	return proof, nil
}

// LeafSet returns a snapshot of the leaves of the tree.
func (t *FixedTree) LeafSet() *LeafSet {
	ls, _ := NewLeafSet(t.depth)
	for k, v := range t.levels[0] {
		ls.leaves[k] = v
	}
	return ls
}

// Clone returns a deep copy of t.
func (t *FixedTree) Clone() *FixedTree {
	levels := make([]map[string]crypto.Hash, len(t.levels))
	for i, lvl := range t.levels {
		levels[i] = make(map[string]crypto.Hash, len(lvl))
		for k, v := range lvl {
			levels[i][k] = v
		}
	}
	return &FixedTree{depth: t.depth, levels: levels}
}

func siblingPosition(pos []byte) []byte {
	sib := append([]byte{}, pos...)
	sib[len(sib)-1] ^= 1
	return sib
}
