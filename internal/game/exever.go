package game

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// ErrExeRunning is reported when the executable cannot be opened
// read-write, which on Windows means the game process holds it.
var ErrExeRunning = errors.New("game executable is locked by a running process")

// ExeNames is the fixed set of executable names a game copy may use.
var ExeNames = []string{"hta.exe", "game.exe", "start.exe", "ExMachina.exe"}

// UnknownLabel is the fallback version label.
const UnknownLabel = "Unknown"

// sliceRule matches a sub-slice of the bytes read at an offset.
type sliceRule struct {
	offset int64
	length int
	from   int
	to     int // exclusive; 0 means from+len(want)
	want   []byte
	label  string
}

// signatureRules is the version decision table. Rules are evaluated in
// order; the first hit wins. The byte constants are part of the on-disk
// contract with the game executables and must not change.
var signatureRules = []sliceRule{
	{offset: 0x5906A3, length: 15, from: 8, to: 12, want: []byte("1.02"), label: "Clean 1.02"},
	{offset: 0x5906A3, length: 15, from: 0, to: 4, want: []byte("1.14"), label: "ComPatch 1.14"},
	{offset: 0x5906A3, length: 15, from: 3, to: 7, want: []byte("1.14"), label: "ComRemaster 1.14"},
	{offset: 0x5917D2, length: 15, from: 1, to: 5, want: []byte("1.03"), label: "DRM Free 1.03"},
	{offset: 0x5A69C2, length: 15, from: 1, to: 5, want: []byte("1.0 "), label: "1.0 Starforce"},
	{offset: 0x0102CD, length: 9, from: 0, to: 9,
		want:  []byte{0x55, 0x8B, 0xEC, 0x6A, 0xFF, 0x68, 0x40, 0x9E, 0x62},
		label: "1.02 Starforce"},
	{offset: 0x0103CD, length: 9, from: 0, to: 9,
		want:  []byte{0x55, 0x8B, 0xEC, 0x6A, 0xFF, 0x68, 0x48, 0xA1, 0x62},
		label: "1.03 Starforce"},
	{offset: 0x00DEAD, length: 9, from: 0, to: 9,
		want:  []byte{0x44, 0x45, 0x4D, 0x00, 0x4C, 0x4E, 0x43, 0x48, 0x52},
		label: "Old DEM launcher"},
}

// ExeVersion reads the version signature from the executable. The file is
// opened read-write on purpose: a sharing violation from the running game
// must surface here, before any install is attempted.
func ExeVersion(exePath string) (string, error) {
	f, err := os.OpenFile(exePath, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		// Sharing violation or permission failure: treat as running.
		return "", ErrExeRunning
	}
	defer f.Close()
	return exeVersionFrom(f)
}

func exeVersionFrom(r io.ReaderAt) (string, error) {
	for _, rule := range signatureRules {
		buf := make([]byte, rule.length)
		if _, err := r.ReadAt(buf, rule.offset); err != nil {
			continue // short file, rule cannot apply
		}
		to := rule.to
		if to > len(buf) {
			to = len(buf)
		}
		if bytes.Equal(buf[rule.from:to], rule.want) {
			return rule.label, nil
		}
	}
	return UnknownLabel, nil
}

// IsPatchCompatible reports whether a labelled executable can host
// community patch content: clean or already-patched builds only.
func IsPatchCompatible(label string) bool {
	for _, prefix := range []string{"Clean", "ComRemaster", "ComPatch"} {
		if len(label) >= len(prefix) && label[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// IsPatchedLabel reports whether the label indicates community patch
// content is already applied.
func IsPatchedLabel(label string) bool {
	return hasPrefix(label, "ComPatch") || hasPrefix(label, "ComRemaster")
}

func hasPrefix(s, p string) bool {
	return len(s) >= len(p) && s[:len(p)] == p
}
