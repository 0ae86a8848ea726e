package merkletree

import (
	"fmt"
	"sort"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/utils"
)

// Entry is a single (key, value) pair of a LeafSet.
type Entry struct {
	Key   Key
	Value crypto.Hash
}

// LeafSet maps keys to non-default values for a tree of a fixed depth.
// Every key is in range and every stored value is non-zero; keys which
// are not in the set implicitly hold the default value.
type LeafSet struct {
	depth  uint32
	leaves map[string]crypto.Hash
}

// NewLeafSet returns an empty LeafSet for a tree of the given depth.
func NewLeafSet(depth uint32) (*LeafSet, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	return &LeafSet{
		depth:  depth,
		leaves: make(map[string]crypto.Hash),
	}, nil
}

// NewHashedLeafSet returns an empty LeafSet for a hashed-key tree.
func NewHashedLeafSet() *LeafSet {
	ls, _ := NewLeafSet(HashedKeyBits)
	return ls
}

// NewLeafSetFromEntries builds a LeafSet from entries. It fails on the
// first invalid key or value.
func NewLeafSetFromEntries(depth uint32, entries []Entry) (*LeafSet, error) {
	ls, err := NewLeafSet(depth)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := ls.Insert(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

// Depth returns the depth of the tree the set belongs to.
func (ls *LeafSet) Depth() uint32 {
	return ls.depth
}

// Len returns the number of non-default leaves.
func (ls *LeafSet) Len() int {
	return len(ls.leaves)
}

// Get returns the value stored at key. The second return value is false
// if key holds the default value.
func (ls *LeafSet) Get(key Key) (crypto.Hash, bool) {
	v, ok := ls.leaves[string(key)]
	return v, ok
}

// Insert validates and stores (key, value) in place, replacing any
// previous value. The default value is rejected with ErrInvalidValue.
func (ls *LeafSet) Insert(key Key, value crypto.Hash) error {
	if !validKey(ls.depth, key) {
		return fmt.Errorf("%w: 0x%x does not fit %d bits", ErrInvalidKey, []byte(key), ls.depth)
	}
	if value.IsEmpty() {
		return fmt.Errorf("%w: the default value cannot be stored", ErrInvalidValue)
	}
	ls.leaves[string(key)] = value
	return nil
}

// Clone returns a deep copy of ls.
func (ls *LeafSet) Clone() *LeafSet {
	leaves := make(map[string]crypto.Hash, len(ls.leaves))
	for k, v := range ls.leaves {
		leaves[k] = v
	}
	return &LeafSet{depth: ls.depth, leaves: leaves}
}

// Entries returns the non-default leaves ordered by key.
func (ls *LeafSet) Entries() []Entry {
	entries := make([]Entry, 0, len(ls.leaves))
	for k, v := range ls.leaves {
		entries = append(entries, Entry{Key: Key(k), Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return utils.CompareKeys(entries[i].Key, entries[j].Key) < 0
	})
	return entries
}

// set stores value at key, removing key when value is the default.
func (ls *LeafSet) set(key Key, value crypto.Hash) error {
	if !validKey(ls.depth, key) {
		return fmt.Errorf("%w: 0x%x does not fit %d bits", ErrInvalidKey, []byte(key), ls.depth)
	}
	if value.IsEmpty() {
		delete(ls.leaves, string(key))
		return nil
	}
	ls.leaves[string(key)] = value
	return nil
}

// ApplyMutation returns a copy of ls with key set to value. Setting the
// default value deletes the key. ls itself is left untouched.
func ApplyMutation(ls *LeafSet, key Key, value crypto.Hash) (*LeafSet, error) {
	return ApplyMutations(ls, []Entry{{Key: key, Value: value}})
}

// ApplyMutations is ApplyMutation for an ordered batch of updates. A
// later entry for the same key overrides an earlier one. Either all
// updates are applied or none.
func ApplyMutations(ls *LeafSet, updates []Entry) (*LeafSet, error) {
	next := ls.Clone()
	for _, u := range updates {
		if err := next.set(u.Key, u.Value); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Delete returns a copy of ls without key.
func Delete(ls *LeafSet, key Key) (*LeafSet, error) {
	return ApplyMutation(ls, key, crypto.EmptyHash)
}
