package merkletree

import (
	"sort"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/crypto/hashers"
	_ "github.com/smtprovider/smt-provider/crypto/hashers/keccak"
	"github.com/smtprovider/smt-provider/utils"
)

// treeHasher hashes the nodes of both tree profiles. Proofs must replay
// in the on-chain verifier, so it is always the crypto.HashID hasher.
var treeHasher = mustTreeHasher(crypto.HashID)

func mustTreeHasher(id string) hashers.TreeHasher {
	h, err := hashers.NewTreeHasher(id)
	if err != nil {
		panic(err)
	}
	return h
}

// merkleNode is a node of a hashed-key tree: either a *leafNode or a
// *parentNode. Each node caches its hash and the greatest key it covers.
type merkleNode interface {
	hash() crypto.Hash
	maxKey() Key
}

var _ merkleNode = (*leafNode)(nil)
var _ merkleNode = (*parentNode)(nil)

type leafNode struct {
	key    Key
	value  crypto.Hash
	digest crypto.Hash
}

// parentNode has two non-empty children. Keys of both subtrees agree on
// every bit before offset, where the left subtree has a 0 and the right
// subtree has a 1.
type parentNode struct {
	offset uint32
	left   merkleNode
	right  merkleNode
	digest crypto.Hash
}

func newLeafNode(key Key, value crypto.Hash) *leafNode {
	n := &leafNode{key: key, value: value}
	if !value.IsEmpty() {
		n.digest = hashLeaf(key, value)
	}
	return n
}

func newParentNode(offset uint32, left, right merkleNode) *parentNode {
	return &parentNode{
		offset: offset,
		left:   left,
		right:  right,
		digest: hashInterior(left.hash(), right.hash()),
	}
}

func (n *leafNode) hash() crypto.Hash {
	return n.digest
}

func (n *leafNode) maxKey() Key {
	return n.key
}

func (n *parentNode) hash() crypto.Hash {
	return n.digest
}

func (n *parentNode) maxKey() Key {
	return n.right.maxKey()
}

func hashInterior(left, right crypto.Hash) crypto.Hash {
	var h crypto.Hash
	copy(h[:], treeHasher.HashInterior(left[:], right[:]))
	return h
}

func hashLeaf(key Key, value crypto.Hash) crypto.Hash {
	var h crypto.Hash
	copy(h[:], treeHasher.HashLeaf(key, value[:]))
	return h
}

// hashPair is the fixed-depth parent rule: two default children make a
// default parent, anything else is hashed with zero placeholders.
func hashPair(left, right crypto.Hash) crypto.Hash {
	if left.IsEmpty() && right.IsEmpty() {
		return crypto.EmptyHash
	}
	return hashInterior(left, right)
}

// splitIndex returns the index of the first entry whose key has bit
// offset (MSB first) set. All entries must agree on the bits before
// offset and be sorted by key.
func splitIndex(entries []Entry, offset uint32) int {
	return sort.Search(len(entries), func(i int) bool {
		return utils.GetNthBit(entries[i].Key, offset)
	})
}

// firstDiff returns the first bit offset (MSB first) in [from, to) at
// which a and b differ, and false if there is none.
func firstDiff(a, b Key, from, to uint32) (uint32, bool) {
	for i := from; i < to; i++ {
		if utils.GetNthBit(a, i) != utils.GetNthBit(b, i) {
			return i, true
		}
	}
	return 0, false
}
