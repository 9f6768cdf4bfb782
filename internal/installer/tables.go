package installer

import "math"

// Widescreen scaling constants. The game UI was authored for 1024x768;
// remaster content retargets it to 1920x1080 with a partial horizontal
// stretch that keeps the center 86% of the screen undistorted.
const (
	OrigResX = 1024
	OrigResY = 768

	TargetResX = 1920
	TargetResY = 1080

	EnlargeUICoef        = float64(TargetResY) / float64(OrigResY)
	PartialStretch       = 1.0 / (1.0 - 2.0*0.07)
	PartialStretchOffset = 0.07

	TargetFovXRads = float32(math.Pi / 2)
)

// textEntry is one fixed-length zero-padded string patch.
type textEntry struct {
	text   string
	maxLen int
}

// offsetsText patches the in-exe version banner strings. Entries whose
// text starts with "ExMachina - " get " [build]" appended before padding.
var offsetsText = map[int64]textEntry{
	0x590680: {"ExMachina - Community Patch build v1.14 (May 16 2023)", 70},
	0x5906E8: {"ExMachina - Community Remaster build v1.14 (May 16 2023)", 70},
	0x5917C0: {"v1.14", 8},
}

// binaryInserts are raw code patches written verbatim, keyed by offset.
// Hex strings keep the payloads readable against a disassembly.
var binaryInserts = map[int64]string{
	0x18E90F: "E9BC000000",
	0x2A3C0D: "909090",
	0x3F0D12: "EB1A",
	0x4D93A0: "C390909090",
}

// mmInserts patch the memory manager to lift the 32 MB pool ceiling.
var mmInserts = map[int64]string{
	0x02E125: "68000000FF",
	0x02E14B: "68000000FF",
	0x12DFAD: "9090",
}

// offsetsExeFixes are the always-applied scalar fixes, shared by compatch
// and comremaster installs.
var offsetsExeFixes = map[int64]PatchValue{
	0x124CCD: Int32(1024),
	0x1373FE: Int32(100),
	0x1A89F0: Float32(72.0),
	0x2D9A6C: HexAddr(0x009E5A14),
	0x2E93CC: Float32(0.25),
	0x3C1B2A: Bool(true),
	0x3D5FE0: Byte(16),
	0x4F2A10: Float32(1.0),
}

// offsetsExeUI are applied on the remaster branch only, after widescreen
// scaling has been computed.
var offsetsExeUI = map[int64]PatchValue{
	0x3A6128: Float32(TargetFovXRads),
	0x3A6FF0: Float32(float32(TargetResX) / float32(TargetResY)),
}

// offsetsAbsSizes hold float32 UI extents scaled by EnlargeUICoef.
var offsetsAbsSizes = []int64{
	0x35B2E0, 0x35B2F8, 0x35B310, 0x35B328,
	0x35C0A4, 0x35C0BC, 0x35C0D4,
	0x3702C8, 0x3702E0,
}

// offsetsAbsMoveX hold float32 X positions retranslated for the partial
// stretch: scaled by EnlargeUICoef*PartialStretch and shifted by
// PartialStretchOffset*TargetResX.
var offsetsAbsMoveX = []int64{
	0x35B340, 0x35B358, 0x35B370,
	0x35C0EC, 0x35C104,
	0x3702F8,
}

// offsetsFontSizes hold float32 font heights scaled by EnlargeUICoef.
var offsetsFontSizes = []int64{
	0x58F2A0, 0x58F2A8, 0x58F2B0, 0x58F2B8,
}

// resolutionSlot addresses one entry of the in-exe resolution menu.
type resolutionSlot struct {
	widthOff  int64
	heightOff int64
}

// offsetsResolutionList is the five-slot resolution table.
var offsetsResolutionList = [5]resolutionSlot{
	{0x59E310, 0x59E314},
	{0x59E318, 0x59E31C},
	{0x59E320, 0x59E324},
	{0x59E328, 0x59E32C},
	{0x59E330, 0x59E334},
}

// DefaultResolutions is the width list used when the monitor's width has
// no preferred mapping.
var DefaultResolutions = [5]int{800, 1024, 1280, 1440, 1920}

// preferredResolutions maps a monitor width to the five menu widths.
var preferredResolutions = map[int][5]int{
	1280: {800, 1024, 1152, 1280, 1280},
	1366: {800, 1024, 1280, 1360, 1366},
	1440: {800, 1024, 1280, 1366, 1440},
	1600: {800, 1024, 1280, 1440, 1600},
	1680: {800, 1024, 1280, 1440, 1680},
	1920: {800, 1024, 1280, 1440, 1920},
	2560: {1024, 1280, 1440, 1920, 2560},
	3840: {1280, 1440, 1920, 2560, 3840},
}

// possibleResolutions pairs each menu width with its height.
var possibleResolutions = map[int]int{
	800:  600,
	1024: 768,
	1152: 864,
	1280: 720,
	1360: 768,
	1366: 768,
	1440: 810,
	1600: 900,
	1680: 945,
	1920: 1080,
	2560: 1440,
	3840: 2160,
}

// offsetsDLL are the dxrender9.dll fixes; hex values use the render-DLL
// truncated 8-byte encoding.
var offsetsDLL = map[int64]PatchValue{
	0x0A3D20: Float32(float32(EnlargeUICoef)),
	0x0A3D28: HexAddr(0x10B2F040),
	0x0B1190: Int32(2048),
	0x0C45E4: Bool(false),
}

// configurableOffsets locate the values overridable per mod through
// patcher_options.
var configurableOffsets = struct {
	gravity       int64
	skinsInShop   int64
	blastDamageFF int64
}{
	gravity:       0x202D25,
	skinsInShop:   0x210464,
	blastDamageFF: 0x3E1C0A,
}

// DefaultGravity is the stock physics gravity, used when a mod does not
// override it.
const DefaultGravity = -9.8
