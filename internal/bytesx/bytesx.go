// Package bytesx provides the little-endian decoding primitives the rest of
// fatfs builds on: every on-disk FAT structure is a flat byte layout, never a
// Go struct read with encoding/binary, so decoding is centralized here.
package bytesx

import "encoding/binary"

// Word decodes a 16-bit little-endian value from the first two bytes of buf.
func Word(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

// DWord decodes a 32-bit little-endian value from the first four bytes of buf.
func DWord(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// PutWord encodes v as a 16-bit little-endian value into the first two bytes
// of buf.
func PutWord(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

// PutDWord encodes v as a 32-bit little-endian value into the first four
// bytes of buf.
func PutDWord(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Equal reports whether a and b hold identical bytes. It exists mainly for
// comparing fixed-size on-disk fields (signatures, GUIDs, 8.3 names) where
// bytes.Equal would otherwise be called at every call site.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
