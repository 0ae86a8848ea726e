package merkletree

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/smtprovider/smt-provider/crypto"
)

var zero = make([]byte, crypto.HashSizeByte)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func randomValue(r *rand.Rand) crypto.Hash {
	var h crypto.Hash
	for h.IsEmpty() {
		r.Read(h[:])
	}
	return h
}

func randomKey(r *rand.Rand, depth uint32) Key {
	b := make([]byte, KeySize(depth))
	r.Read(b)
	if pad := keyPad(depth); pad > 0 {
		b[0] &= 0xff >> pad
	}
	return Key(b)
}

func randomLeafSet(t *testing.T, r *rand.Rand, depth uint32, n int) *LeafSet {
	ls, err := NewLeafSet(depth)
	if err != nil {
		t.Fatal(err)
	}
	for ls.Len() < n {
		if err := ls.Insert(randomKey(r, depth), randomValue(r)); err != nil {
			t.Fatal(err)
		}
	}
	return ls
}

func mustKey(t *testing.T, depth uint32, n uint64) Key {
	k, err := KeyFromUint64(depth, n)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func mustHex(t *testing.T, s string) crypto.Hash {
	h, err := crypto.ParseHash(s)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func digest(ms ...[]byte) crypto.Hash {
	return crypto.DigestHash(ms...)
}

func hashedKey(b ...byte) Key {
	return Key(append(make([]byte, KeySize(HashedKeyBits)-len(b)), b...))
}

func proofsEqual(a, b *Proof) bool {
	return a.Depth == b.Depth && bytes.Equal(a.Bytes(), b.Bytes())
}
