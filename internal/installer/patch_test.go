package installer

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/blackwell-systems/commodctl/internal/mods"
)

// memFile is an in-memory patch target that grows on writes past the end.
type memFile struct {
	data []byte
}

func newMemFile(size int) *memFile {
	return &memFile{data: make([]byte, size)}
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memFile) float32At(off int64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(m.data[off:]))
}

func (m *memFile) putFloat32(off int64, v float32) {
	binary.LittleEndian.PutUint32(m.data[off:], math.Float32bits(v))
}

func (m *memFile) int32At(off int64) int32 {
	return int32(binary.LittleEndian.Uint32(m.data[off:]))
}

const testExeSize = 0x5B0000

func TestEncodeExe(t *testing.T) {
	cases := []struct {
		name string
		v    PatchValue
		want []byte
	}{
		{"int32", Int32(1024), []byte{0x00, 0x04, 0x00, 0x00}},
		{"hex addr", HexAddr(0x009E5A14), []byte{0x14, 0x5A, 0x9E, 0x00}},
		{"float32", Float32(1.0), []byte{0x00, 0x00, 0x80, 0x3F}},
		{"bool", Bool(true), []byte{0x01}},
		{"byte", Byte(16), []byte{0x10}},
	}
	for _, tc := range cases {
		if got := tc.v.EncodeExe(); !bytes.Equal(got, tc.want) {
			t.Errorf("%s: got % X, want % X", tc.name, got, tc.want)
		}
	}
}

func TestEncodeDLL_TruncatesHexAddr(t *testing.T) {
	// A value wider than 32 bits keeps only the low 4 little-endian bytes.
	got := HexAddr(0x0110B2F040).EncodeDLL()
	want := []byte{0x40, 0xF0, 0xB2, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("got % X, want % X", got, want)
	}
	// Non-address kinds share the executable encoding.
	if !bytes.Equal(Int32(7).EncodeDLL(), Int32(7).EncodeExe()) {
		t.Error("int32 DLL encoding should match exe encoding")
	}
}

func TestEncodeHexBlob(t *testing.T) {
	got := encodeHexBlob("E9BC000000")
	want := []byte{0xE9, 0xBC, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got % X, want % X", got, want)
	}
}

func TestEncodeText(t *testing.T) {
	entry := offsetsText[0x590680]
	got := encodeText(entry, "abc1234")
	if len(got) != entry.maxLen {
		t.Fatalf("len = %d, want %d", len(got), entry.maxLen)
	}
	wantText := entry.text + " [abc1234]"
	if string(got[:len(wantText)]) != wantText {
		t.Errorf("text = %q, want %q", got[:len(wantText)], wantText)
	}
	for i := len(wantText); i < len(got); i++ {
		if got[i] != 0 {
			t.Fatalf("padding byte %d = %#x, want 0", i, got[i])
		}
	}

	// Entries without the title prefix get no suffix.
	short := encodeText(offsetsText[0x5917C0], "abc1234")
	if string(short[:5]) != "v1.14" || short[5] != 0 {
		t.Errorf("short entry = %q", short)
	}
}

func TestAiClashCoeff(t *testing.T) {
	cases := map[float64]string{
		-9.8:  "0.0010",
		-19.6: "0.0005",
		-4.9:  "0.0020",
	}
	for gravity, want := range cases {
		if got := AiClashCoeff(gravity); got != want {
			t.Errorf("AiClashCoeff(%v) = %q, want %q", gravity, got, want)
		}
	}
}

func TestPatchExe_Idempotent(t *testing.T) {
	// The compatch branch uses absolute writes only, so re-running the
	// patch over its own output must not change a byte.
	f := newMemFile(testExeSize)
	opts := exePatchOpts{build: "abc1234", monitorWidth: 1920}
	if err := patchExe(context.Background(), f, opts); err != nil {
		t.Fatal(err)
	}
	first := append([]byte(nil), f.data...)
	if err := patchExe(context.Background(), f, opts); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, f.data) {
		t.Error("second patch pass changed the output")
	}
}

func TestPatchExe_WritesBannerAndFixes(t *testing.T) {
	f := newMemFile(testExeSize)
	err := patchExe(context.Background(), f, exePatchOpts{build: "abc1234", monitorWidth: 1920})
	if err != nil {
		t.Fatal(err)
	}

	banner := "ExMachina - Community Patch build v1.14 (May 16 2023) [abc1234]"
	if got := string(f.data[0x590680 : 0x590680+len(banner)]); got != banner {
		t.Errorf("banner = %q", got)
	}
	if got := f.int32At(0x124CCD); got != 1024 {
		t.Errorf("fix at 0x124CCD = %d, want 1024", got)
	}
	if got := f.data[0x3C1B2A]; got != 1 {
		t.Errorf("bool fix = %#x, want 1", got)
	}
	// Code insert lands verbatim.
	if !bytes.Equal(f.data[0x2A3C0D:0x2A3C0D+3], []byte{0x90, 0x90, 0x90}) {
		t.Errorf("insert at 0x2A3C0D = % X", f.data[0x2A3C0D:0x2A3C0D+3])
	}
}

func TestPatchExe_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := patchExe(ctx, newMemFile(testExeSize), exePatchOpts{}); err == nil {
		t.Error("cancelled context should abort the patch")
	}
}

func TestPatchWidescreen(t *testing.T) {
	f := newMemFile(testExeSize)
	sizeOff := offsetsAbsSizes[0]
	moveOff := offsetsAbsMoveX[0]
	f.putFloat32(sizeOff, 100)
	f.putFloat32(moveOff, 100)

	if err := patchWidescreen(f); err != nil {
		t.Fatal(err)
	}

	wantSize := float32(100 * EnlargeUICoef)
	if got := f.float32At(sizeOff); got != wantSize {
		t.Errorf("scaled size = %v, want %v", got, wantSize)
	}
	wantMove := float32(100*EnlargeUICoef*PartialStretch) +
		float32(PartialStretchOffset*float64(TargetResX))
	if got := f.float32At(moveOff); got != wantMove {
		t.Errorf("moved X = %v, want %v", got, wantMove)
	}
}

func TestPatchResolutionList(t *testing.T) {
	f := newMemFile(testExeSize)
	if err := patchResolutionList(f, 1920); err != nil {
		t.Fatal(err)
	}
	wantW := [5]int32{800, 1024, 1280, 1440, 1920}
	wantH := [5]int32{600, 768, 720, 810, 1080}
	for i, slot := range offsetsResolutionList {
		if got := f.int32At(slot.widthOff); got != wantW[i] {
			t.Errorf("slot %d width = %d, want %d", i, got, wantW[i])
		}
		if got := f.int32At(slot.heightOff); got != wantH[i] {
			t.Errorf("slot %d height = %d, want %d", i, got, wantH[i])
		}
	}

	// Unknown monitor widths fall back to the default ladder.
	f = newMemFile(testExeSize)
	if err := patchResolutionList(f, 1111); err != nil {
		t.Fatal(err)
	}
	for i, slot := range offsetsResolutionList {
		if got := f.int32At(slot.widthOff); got != int32(DefaultResolutions[i]) {
			t.Errorf("fallback slot %d width = %d, want %d", i, got, DefaultResolutions[i])
		}
	}
}

func TestPatchConfigurables(t *testing.T) {
	f := newMemFile(testExeSize)
	po := mods.PatcherOptions{
		Gravity: -12.5, HasGravity: true,
		SkinsInShop: 24, HasSkinsInShop: true,
		BlastDamageFF: true, HasBlastDamageFF: true,
	}
	if err := patchConfigurables(f, po); err != nil {
		t.Fatal(err)
	}
	if got := f.float32At(configurableOffsets.gravity); got != -12.5 {
		t.Errorf("gravity = %v", got)
	}
	if got := f.data[configurableOffsets.skinsInShop]; got != 24 {
		t.Errorf("skins = %d", got)
	}
	if got := f.data[configurableOffsets.blastDamageFF]; got != 1 {
		t.Errorf("blast flag = %d", got)
	}

	// Unset options leave the bytes untouched.
	f = newMemFile(testExeSize)
	if err := patchConfigurables(f, mods.PatcherOptions{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.data, make([]byte, testExeSize)) {
		t.Error("empty patcher options should write nothing")
	}
}
