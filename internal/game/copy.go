// Package game probes a filesystem path for a game copy: identifies the
// installment, reads the executable version signature at fixed byte
// offsets, and loads/persists the installation manifest.
package game

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// requiredPaths must all exist for a directory to count as a game copy.
var requiredPaths = []string{
	"dxrender9.dll",
	"data/effects",
	"data/gamedata",
	"data/if",
	"data/maps",
	"data/models",
	"data/music",
	"data/scripts",
	"data/shaders",
	"data/sounds",
	"data/textures",
	"data/weather.xml",
	"data/config.cfg",
}

// Copy is a probed game installation. It is the authoritative owner of the
// installed-content map; the installer mutates it and persists it after a
// successful install.
type Copy struct {
	GameRootPath string
	TargetExe    string
	ExeLabel     string
	Installment  string

	InstalledContent      map[string]Record
	InstalledDescriptions map[string]string

	PatchedVersion bool
	Leftovers      bool
}

// ProbeKind tags the outcome of Probe.
type ProbeKind int

const (
	ProbeValid ProbeKind = iota
	ProbeWrongPath
	ProbeInvalidDir
	ProbeExeNotFound
	ProbeExeNotSupported
	ProbeExeIsRunning
	ProbeInvalidManifest
	ProbeManifestButUnpatched
	ProbePatchedButNoManifest
)

// ProbeResult is the tagged outcome of probing a game directory. Only
// ProbeValid, ProbeManifestButUnpatched and ProbePatchedButNoManifest carry
// a usable Copy; the latter two mark it as leftovers.
type ProbeResult struct {
	Kind        ProbeKind
	Copy        *Copy
	Label       string
	MissingPath string
}

// ValidateGameDir checks that path is a directory holding one of the known
// executables and the full required data layout. Returns the first missing
// path on failure.
func ValidateGameDir(path string) (bool, string) {
	if !hasAnyExe(path) {
		return false, "game executable"
	}
	for _, rel := range requiredPaths {
		if _, err := os.Stat(filepath.Join(path, filepath.FromSlash(rel))); err != nil {
			return false, rel
		}
	}
	return true, ""
}

func hasAnyExe(path string) bool {
	return FindExe(path) != ""
}

// FindExe locates the game executable inside the directory, or returns "".
func FindExe(path string) string {
	for _, name := range ExeNames {
		p := filepath.Join(path, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// InstallmentFromLabel derives the installment from the exe version label.
func InstallmentFromLabel(label string) string {
	switch {
	case strings.Contains(label, "M113"):
		return "m113"
	case strings.Contains(label, "Arcade"):
		return "arcade"
	case strings.Contains(label, UnknownLabel):
		return "unknown"
	}
	return "exmachina"
}

// Probe runs the full game-install pipeline on a directory and returns a
// tagged result instead of an error for each distinct failure state.
func Probe(path string) ProbeResult {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return ProbeResult{Kind: ProbeWrongPath}
	}

	if ok, missing := ValidateGameDir(path); !ok {
		return ProbeResult{Kind: ProbeInvalidDir, MissingPath: missing}
	}

	exe := FindExe(path)
	if exe == "" {
		return ProbeResult{Kind: ProbeExeNotFound}
	}

	label, err := ExeVersion(exe)
	if err != nil {
		return ProbeResult{Kind: ProbeExeIsRunning}
	}

	if !IsPatchCompatible(label) {
		return ProbeResult{Kind: ProbeExeNotSupported, Label: label}
	}

	gc := &Copy{
		GameRootPath:          path,
		TargetExe:             exe,
		ExeLabel:              label,
		Installment:           InstallmentFromLabel(label),
		InstalledContent:      map[string]Record{},
		InstalledDescriptions: map[string]string{},
	}

	patched := IsPatchedLabel(label)
	manifestPath := filepath.Join(path, filepath.FromSlash(ManifestRelPath))
	records, manifestErr := LoadManifest(manifestPath)
	hasManifest := manifestErr == nil

	switch {
	case patched && hasManifest:
		if !manifestCoversLabel(records, label) {
			return ProbeResult{Kind: ProbeInvalidManifest, Label: label}
		}
		gc.InstalledContent = records
		gc.PatchedVersion = true
		for name, r := range records {
			desc := r.DisplayName
			if desc == "" {
				desc = name
			}
			gc.InstalledDescriptions[name] = desc + " " + r.Version
		}
		return ProbeResult{Kind: ProbeValid, Copy: gc, Label: label}

	case patched && !hasManifest:
		if !os.IsNotExist(manifestErr) {
			return ProbeResult{Kind: ProbeInvalidManifest, Label: label}
		}
		gc.PatchedVersion = true
		gc.Leftovers = true
		return ProbeResult{Kind: ProbePatchedButNoManifest, Copy: gc, Label: label}

	case !patched && !os.IsNotExist(manifestErr):
		// A clean exe with any manifest file present, readable or not,
		// points at a partial or foreign install.
		gc.InstalledContent = records
		gc.Leftovers = true
		return ProbeResult{Kind: ProbeManifestButUnpatched, Copy: gc, Label: label}
	}

	// Clean executable, no manifest: a pristine copy.
	return ProbeResult{Kind: ProbeValid, Copy: gc, Label: label}
}

// manifestCoversLabel checks the manifest explains the patched executable:
// a ComPatch exe needs a community_patch record, a ComRemaster exe needs
// community_remaster, each with base and version.
func manifestCoversLabel(records map[string]Record, label string) bool {
	need := "community_patch"
	if hasPrefix(label, "ComRemaster") {
		need = "community_remaster"
	}
	r, ok := records[need]
	return ok && r.Valid()
}

// install locks, one per game root, so two installers cannot interleave
// writes to the same copy.
var (
	locksMu sync.Mutex
	locks   = map[string]*sync.Mutex{}
)

// Lock returns the process-wide mutex for a game root path.
func Lock(gameRoot string) *sync.Mutex {
	abs, err := filepath.Abs(gameRoot)
	if err != nil {
		abs = gameRoot
	}
	locksMu.Lock()
	defer locksMu.Unlock()
	mu, ok := locks[abs]
	if !ok {
		mu = &sync.Mutex{}
		locks[abs] = mu
	}
	return mu
}
