package protocol

import (
	"fmt"
	"sort"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/merkletree"
)

// Entries decodes l into updates of a tree of the given depth, sorted
// by their string keys so that the result does not depend on map
// order. Two strings naming the same key, such as "1" and "0x01", are
// rejected with ErrMalformedParams.
func (l Leaves) Entries(depth uint32) ([]merkletree.Entry, error) {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]merkletree.Entry, 0, len(keys))
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		key, err := merkletree.ParseKey(depth, k)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[string(key)]; ok {
			return nil, fmt.Errorf("%w: keys %q and %q are the same leaf", ErrMalformedParams, other, k)
		}
		seen[string(key)] = k
		value, err := ParseValue(l[k])
		if err != nil {
			return nil, err
		}
		entries = append(entries, merkletree.Entry{Key: key, Value: value})
	}
	return entries, nil
}

// ParseValue parses a 0x-prefixed 32-byte leaf value.
func ParseValue(s string) (crypto.Hash, error) {
	h, err := crypto.ParseHash(s)
	if err != nil {
		return crypto.EmptyHash, fmt.Errorf("%w: %q: %v", merkletree.ErrInvalidValue, s, err)
	}
	return h, nil
}

// ParseProofKey parses a key whose proof is requested. A key outside
// the tree is reported as not provable.
func ParseProofKey(depth uint32, s string) (merkletree.Key, error) {
	key, err := merkletree.ParseKey(depth, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", merkletree.ErrKeyNotProvable, err)
	}
	return key, nil
}
