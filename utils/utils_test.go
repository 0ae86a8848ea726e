package utils

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestGetNthBit(t *testing.T) {
	bs := []byte{0x80, 0x01}
	for i := uint32(0); i < 16; i++ {
		want := i == 0 || i == 15
		if GetNthBit(bs, i) != want {
			t.Error("Wrong bit", i)
		}
	}
}

func TestGetBitLSBMatchesBigInt(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	bs := make([]byte, 5)
	for round := 0; round < 20; round++ {
		r.Read(bs)
		n := new(big.Int).SetBytes(bs)
		for i := uint32(0); i < 48; i++ {
			if GetBitLSB(bs, i) != (n.Bit(int(i)) == 1) {
				t.Fatalf("bit %d of %x mismatch", i, bs)
			}
		}
	}
}

func TestSetBitLSB(t *testing.T) {
	bs := make([]byte, 2)
	SetBitLSB(bs, 0)
	SetBitLSB(bs, 9)
	if !bytes.Equal(bs, []byte{0x02, 0x01}) {
		t.Fatalf("unexpected bitmap %x", bs)
	}
	if !GetBitLSB(bs, 0) || !GetBitLSB(bs, 9) || GetBitLSB(bs, 1) {
		t.Fatal("GetBitLSB disagrees with SetBitLSB")
	}
}

func TestShiftRight(t *testing.T) {
	in := []byte{0x01, 0x03}
	if got := ShiftRight(in); !bytes.Equal(got, []byte{0x00, 0x81}) {
		t.Fatalf("ShiftRight(%x) = %x", in, got)
	}
	if !bytes.Equal(in, []byte{0x01, 0x03}) {
		t.Fatal("ShiftRight must not mutate its input")
	}
}

func TestCompareKeys(t *testing.T) {
	a := []byte{0x01, 0x00}
	b := []byte{0x00, 0x02}
	if CompareKeys(a, b) != 1 {
		t.Error("big-endian: expect a > b")
	}
	if CompareKeys(a, a) != 0 {
		t.Error("expect equal keys to compare as 0")
	}
}

func TestUInt32ToBytes(t *testing.T) {
	numInt := uint32(42)
	b := UInt32ToBytes(numInt)
	if binary.LittleEndian.Uint32(b) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
}

func TestULongToBytes(t *testing.T) {
	numInt := uint64(42)
	b := ULongToBytes(numInt)
	if binary.LittleEndian.Uint64(b) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
}

func TestLongToBytes(t *testing.T) {
	numInt := int64(42)
	b := LongToBytes(numInt)
	if int64(binary.LittleEndian.Uint64(b)) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
	numInt = int64(-42)
	b = LongToBytes(numInt)
	if int64(binary.LittleEndian.Uint64(b)) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out")
	if err := WriteFile(file, []byte("a"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(file, []byte("b"), 0600); err == nil {
		t.Fatal("Expect an error when the file exists")
	}
	got, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a" {
		t.Fatal("File should not be overwritten")
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("server.pem", "/etc/smt/config.toml"); got != "/etc/smt/server.pem" {
		t.Error("Unexpected path", got)
	}
	if got := ResolvePath("/abs/server.pem", "/etc/smt/config.toml"); got != "/abs/server.pem" {
		t.Error("Absolute paths must be kept", got)
	}
}
