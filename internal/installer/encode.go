package installer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueKind tags the encoding of one patch value.
type ValueKind int

const (
	// KindInt32 writes a 4-byte little-endian signed integer.
	KindInt32 ValueKind = iota
	// KindHexAddr writes an address as 4-byte little-endian unsigned. In
	// the render DLL the source value is 8 bytes wide and truncated to
	// its low 4 bytes.
	KindHexAddr
	// KindFloat32 writes an IEEE-754 32-bit little-endian float.
	KindFloat32
	// KindBool writes a single 0/1 byte.
	KindBool
	// KindByte writes a single raw byte.
	KindByte
)

// PatchValue is one typed entry of a patch table. Keeping the encoding in
// the type catches width mismatches at compile time instead of at the
// moment a wrong-sized write lands in the executable.
type PatchValue struct {
	Kind ValueKind
	I    int32
	U    uint64
	F    float32
	B    bool
	Y    byte
}

func Int32(v int32) PatchValue     { return PatchValue{Kind: KindInt32, I: v} }
func HexAddr(v uint64) PatchValue  { return PatchValue{Kind: KindHexAddr, U: v} }
func Float32(v float32) PatchValue { return PatchValue{Kind: KindFloat32, F: v} }
func Bool(v bool) PatchValue       { return PatchValue{Kind: KindBool, B: v} }
func Byte(v byte) PatchValue       { return PatchValue{Kind: KindByte, Y: v} }

// EncodeExe renders the value with the executable encoding rules.
func (v PatchValue) EncodeExe() []byte {
	switch v.Kind {
	case KindInt32:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(v.I))
		return out
	case KindHexAddr:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(v.U))
		return out
	case KindFloat32:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(v.F))
		return out
	case KindBool:
		if v.B {
			return []byte{1}
		}
		return []byte{0}
	case KindByte:
		return []byte{v.Y}
	}
	panic(fmt.Sprintf("unknown patch value kind %d", v.Kind))
}

// EncodeDLL renders the value with the render-DLL rules: identical to the
// executable except hex addresses, which are the low 4 bytes of the value
// encoded as 8-byte little-endian unsigned.
func (v PatchValue) EncodeDLL() []byte {
	if v.Kind != KindHexAddr {
		return v.EncodeExe()
	}
	wide := make([]byte, 8)
	binary.LittleEndian.PutUint64(wide, v.U)
	return wide[:4]
}

// encodeHexBlob converts a hex string from the insert tables into bytes.
// The tables are compile-time data, so a malformed blob is a programming
// error and panics at first use.
func encodeHexBlob(s string) []byte {
	if len(s)%2 != 0 {
		panic("hex blob has odd length: " + s)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi := hexDigit(s[2*i])
		lo := hexDigit(s[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	panic(fmt.Sprintf("bad hex digit %q", c))
}

// encodeText renders a text entry: UTF-8 bytes, optional build suffix,
// zero-padded to the fixed length. Overlong text is clipped.
func encodeText(e textEntry, build string) []byte {
	text := e.text
	if build != "" && len(text) >= len(exeTitlePrefix) && text[:len(exeTitlePrefix)] == exeTitlePrefix {
		text += " [" + build + "]"
	}
	out := make([]byte, e.maxLen)
	copy(out, text)
	return out
}

const exeTitlePrefix = "ExMachina - "
