package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// GetNthBit finds the bit in the byte array bs
// at offset offset, and determines whether it is 1 or 0.
// return true if the nth bit is 1, false otherwise.
// from MSB to LSB order
func GetNthBit(bs []byte, offset uint32) bool {
	arrayOffset := offset / 8
	bitOfByte := offset % 8

	masked := int(bs[arrayOffset] & (1 << uint(7-bitOfByte)))
	return masked != 0
}

// GetBitLSB reads bit i of bs interpreted as a big-endian integer,
// counting from the least significant bit. Bits beyond the length of
// bs are zero.
func GetBitLSB(bs []byte, i uint32) bool {
	byteOffset := int(i / 8)
	if byteOffset >= len(bs) {
		return false
	}
	return bs[len(bs)-1-byteOffset]&(1<<(i%8)) != 0
}

// SetBitLSB sets bit i of the big-endian integer bs, counting from the
// least significant bit. It panics if i is out of range.
func SetBitLSB(bs []byte, i uint32) {
	bs[len(bs)-1-int(i/8)] |= 1 << (i % 8)
}

// ShiftRight returns a copy of the big-endian integer bs shifted right
// by one bit.
func ShiftRight(bs []byte) []byte {
	out := make([]byte, len(bs))
	var carry byte
	for i := 0; i < len(bs); i++ {
		out[i] = bs[i]>>1 | carry
		carry = bs[i] << 7
	}
	return out
}

// CompareKeys compares two keys of the same length as big-endian
// integers, returning -1, 0 or +1.
func CompareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// LongToBytes converts an int64 variable to byte array
// in little endian format
func LongToBytes(num int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(num))
	return buf
}

// ULongToBytes converts an uint64 variable to byte array
// in little endian format
func ULongToBytes(num uint64) []byte {
	return LongToBytes(int64(num))
}

// UInt32ToBytes converts an uint32 variable to byte array
// in little endian format
func UInt32ToBytes(num uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, num)
	return buf
}

// WriteFile writes buf to a file whose path is indicated by filename.
func WriteFile(filename string, buf []byte, perm os.FileMode) error {
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("Can't write file. File '%s' already exists\n",
			filename)
	}

	if err := os.WriteFile(filename, buf, perm); err != nil {
		return err
	}
	return nil
}

// ResolvePath returns the absolute path of file.
// This will use other as a base path if file is just a file name.
func ResolvePath(file, other string) string {
	if !filepath.IsAbs(file) {
		file = filepath.Join(filepath.Dir(other), file)
	}
	return file
}
