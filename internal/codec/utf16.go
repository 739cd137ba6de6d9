package codec

import (
	"encoding/binary"
	"unicode/utf16"
)

// The platform measures text the way a BOM-prefixed UTF-16 encoder does:
// lengths are code units minus one and byte offsets are shifted by the
// two-byte BOM. Both conventions are reproduced exactly.

var bom = []byte{0xFF, 0xFE}

// utf16Bytes encodes s as little-endian UTF-16 behind a BOM
func utf16Bytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, len(bom)+2*len(units))
	copy(buf, bom)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[len(bom)+2*i:], u)
	}
	return buf
}

// wireLen is the length of s as the platform counts it
func wireLen(s string) int {
	return len(utf16Bytes(s))/2 - 1
}

// wireSlice decodes the span [start, end) of a buffer built by utf16Bytes.
// Bounds past the buffer are clamped.
func wireSlice(buf []byte, start, end int) string {
	lo, hi := clamp((start+1)*2, len(buf)), clamp((end+1)*2, len(buf))
	if lo >= hi {
		return ""
	}
	return decodeUTF16(buf[lo:hi])
}

// wireTail decodes everything after offset
func wireTail(buf []byte, offset int) string {
	return wireSlice(buf, offset, len(buf))
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
