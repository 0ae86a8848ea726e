package keccak

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/smtprovider/smt-provider/crypto/hashers"
)

func TestHasherID(t *testing.T) {
	h, err := hashers.NewTreeHasher(Keccak256)
	if err != nil {
		t.Fatal("Expect a registered hasher")
	}
	if h.ID() != Keccak256 {
		t.Error("Wrong hasher ID")
	}
	if h.Size() != 32 {
		t.Error("Wrong hash size")
	}
	if _, err := hashers.NewTreeHasher("SHA1"); err == nil {
		t.Error("Expect an error for an unknown hasher")
	}
}

func TestHashInterior(t *testing.T) {
	h := New()
	left := bytes.Repeat([]byte{0x11}, 32)
	right := bytes.Repeat([]byte{0x22}, 32)
	if !bytes.Equal(h.HashInterior(left, right), h.Digest(append(left, right...))) {
		t.Error("HashInterior must hash left || right")
	}
	if bytes.Equal(h.HashInterior(left, right), h.HashInterior(right, left)) {
		t.Error("HashInterior must be order dependent")
	}
}

func TestHashLeafEmptyInput(t *testing.T) {
	got := hex.EncodeToString(New().HashLeaf(nil, nil))
	if got != "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470" {
		t.Error("Unexpected keccak-256 of the empty input", "got", got)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expect RegisterHasher to panic on duplicates")
		}
	}()
	hashers.RegisterHasher(Keccak256, New)
}
