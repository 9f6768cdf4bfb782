// Package modver implements the loose version scheme used by mod manifests.
//
// Mod versions are not semver: "1", "1.2", "1.14.0-rc1" and even
// "1.0.10.2" (extra components fold into the patch part) are all accepted,
// and parsing never fails. Fully numeric versions compare as integers,
// anything else compares lexicographically per component.
package modver

import (
	"strconv"
	"strings"
)

// Field length caps applied during parsing.
const (
	maxMajorLen = 4
	maxMinorLen = 4
	maxPatchLen = 10
)

// Version is a parsed mod version.
type Version struct {
	Major      string
	Minor      string
	Patch      string
	Identifier string
}

// Parse builds a Version from a string. It always succeeds: missing parts
// default to "0", components past the third are concatenated into Patch,
// and an optional "-IDENT" suffix becomes the Identifier.
func Parse(s string) Version {
	v := Version{Major: "0", Minor: "0", Patch: "0"}

	s = strings.TrimSpace(s)
	if s == "" {
		return v
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.Identifier = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 0 && parts[0] != "" {
		v.Major = clip(parts[0], maxMajorLen)
	}
	if len(parts) > 1 {
		v.Minor = clip(parts[1], maxMinorLen)
	}
	if len(parts) > 2 {
		v.Patch = clip(strings.Join(parts[2:], ""), maxPatchLen)
	}
	return v
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// String renders the version back to "major.minor.patch[-identifier]".
func (v Version) String() string {
	s := v.Major + "." + v.Minor + "." + v.Patch
	if v.Identifier != "" {
		s += "-" + v.Identifier
	}
	return s
}

// IsNumeric reports whether all three numeric parts parse as integers.
func (v Version) IsNumeric() bool {
	_, err1 := strconv.Atoi(v.Major)
	_, err2 := strconv.Atoi(v.Minor)
	_, err3 := strconv.Atoi(v.Patch)
	return err1 == nil && err2 == nil && err3 == nil
}

// Compare orders two versions, ignoring identifiers. It returns -1, 0 or 1.
// When both sides are fully numeric the (major, minor, patch) triple is
// compared as integers; otherwise each component is compared as a
// lowercased string.
func Compare(a, b Version) int {
	if a.IsNumeric() && b.IsNumeric() {
		if c := cmpInt(a.Major, b.Major); c != 0 {
			return c
		}
		if c := cmpInt(a.Minor, b.Minor); c != 0 {
			return c
		}
		return cmpInt(a.Patch, b.Patch)
	}
	if c := cmpStr(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmpStr(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmpStr(a.Patch, b.Patch)
}

func cmpInt(a, b string) int {
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpStr(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Less reports a < b, identifiers ignored.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// Equal reports a == b for range purposes: identifiers ignored.
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// EqualExact reports a == b where the identifier participates. It is used
// when an equality constraint spells out an identifier.
func EqualExact(a, b Version) bool {
	return Compare(a, b) == 0 && a.Identifier == b.Identifier
}
