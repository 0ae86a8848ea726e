package merkletree

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/utils"
)

// ProofType tells whether a proof shows that a key holds a value or
// that it holds the default value.
type ProofType int

const (
	undeterminedProof ProofType = iota
	ProofOfAbsence
	ProofOfInclusion
)

// Proof is the authentication path of a key: one bitmap bit per level,
// from the leaf level (0) to the level just below the root, and the
// non-default siblings in ascending level order.
type Proof struct {
	Depth    uint32
	Key      Key
	Bitmap   []byte
	Siblings []crypto.Hash
	Value    crypto.Hash
}

func newProof(depth uint32, key Key) *Proof {
	return &Proof{
		Depth:  depth,
		Key:    append(Key{}, key...),
		Bitmap: make([]byte, KeySize(depth)),
	}
}

// addSibling records the sibling at level. Siblings must be added in
// ascending level order.
func (p *Proof) addSibling(level uint32, h crypto.Hash) {
	utils.SetBitLSB(p.Bitmap, level)
	p.Siblings = append(p.Siblings, h)
}

// HasSibling reports whether the sibling at level is not the default
// value.
func (p *Proof) HasSibling(level uint32) bool {
	return utils.GetBitLSB(p.Bitmap, level)
}

// ProofType returns ProofOfInclusion if the proven value is not the
// default value.
func (p *Proof) ProofType() ProofType {
	if p.Value.IsEmpty() {
		return ProofOfAbsence
	}
	return ProofOfInclusion
}

// Bytes returns the packed proof: the bitmap followed by the siblings.
func (p *Proof) Bytes() []byte {
	out := make([]byte, 0, len(p.Bitmap)+crypto.HashSizeByte*len(p.Siblings))
	out = append(out, p.Bitmap...)
	for _, s := range p.Siblings {
		out = append(out, s[:]...)
	}
	return out
}

// Hex returns the 0x-prefixed hex encoding of the packed proof.
func (p *Proof) Hex() string {
	return "0x" + hex.EncodeToString(p.Bytes())
}

func (p *Proof) String() string {
	return p.Hex()
}

// DecodeProof unpacks a proof of a tree with the given depth. It checks
// that raw holds exactly one sibling for every set bitmap bit before
// any hashing takes place. Bitmap bits at or beyond depth are ignored.
func DecodeProof(depth uint32, raw []byte) (*Proof, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	bitmapLen := KeySize(depth)
	if len(raw) < bitmapLen || (len(raw)-bitmapLen)%crypto.HashSizeByte != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a %d-byte bitmap followed by 32-byte siblings",
			ErrMalformedProof, len(raw), bitmapLen)
	}
	p := &Proof{
		Depth:  depth,
		Bitmap: append([]byte{}, raw[:bitmapLen]...),
	}
	var want int
	for i := uint32(0); i < depth; i++ {
		if p.HasSibling(i) {
			want++
		}
	}
	have := (len(raw) - bitmapLen) / crypto.HashSizeByte
	if have < want {
		return nil, fmt.Errorf("%w: proof not long enough", ErrMalformedProof)
	}
	if have > want {
		return nil, fmt.Errorf("%w: %d unused siblings", ErrMalformedProof, have-want)
	}
	p.Siblings = make([]crypto.Hash, have)
	for i := range p.Siblings {
		copy(p.Siblings[i][:], raw[bitmapLen+i*crypto.HashSizeByte:])
	}
	return p, nil
}

// ParseProof decodes a 0x-prefixed hex proof.
func ParseProof(depth uint32, s string) (*Proof, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("%w: missing 0x prefix", ErrMalformedProof)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	return DecodeProof(depth, raw)
}

// ComputeRoot replays the proof for a fixed-depth tree: starting from
// value it combines the running hash with the sibling of every level,
// leaving the hash at the default value while both are default.
func (p *Proof) ComputeRoot(key Key, value crypto.Hash) crypto.Hash {
	computed := value
	next := 0
	for i := uint32(0); i < p.Depth; i++ {
		var sibling crypto.Hash
		if p.HasSibling(i) {
			sibling = p.Siblings[next]
			next++
		}
		if computed.IsEmpty() && sibling.IsEmpty() {
			continue
		}
		if key.Bit(i) {
			computed = hashInterior(sibling, computed)
		} else {
			computed = hashInterior(computed, sibling)
		}
	}
	return computed
}

// ComputeTreeRoot replays an inclusion proof for a hashed-key tree:
// the leaf commitment H(key || value) is carried up unchanged through
// levels without a sibling and hashed with every sibling met. value
// must not be the default value, see VerifyTree.
func (p *Proof) ComputeTreeRoot(key Key, value crypto.Hash) crypto.Hash {
	computed := hashLeaf(key, value)
	next := 0
	for i := uint32(0); i < p.Depth; i++ {
		if !p.HasSibling(i) {
			continue
		}
		sibling := p.Siblings[next]
		next++
		if key.Bit(i) {
			computed = hashInterior(sibling, computed)
		} else {
			computed = hashInterior(computed, sibling)
		}
	}
	return computed
}
