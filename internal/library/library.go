// Package library scans a distribution directory for mod manifests and
// keeps the validated results cached by manifest content hash, so repeated
// scans only re-parse what actually changed on disk.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/blackwell-systems/commodctl/internal/manifest"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/util"
)

// maxScanDepth bounds the subdirectory walk below the distribution dir.
const maxScanDepth = 3

// ScanError records one mod that failed to load during a scan. The scan
// itself keeps going.
type ScanError struct {
	ManifestPath string
	Err          error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.ManifestPath, e.Err)
}

// Library is the mod library built from one distribution directory.
type Library struct {
	distributionDir string
	log             *zap.SugaredLogger

	// validatedConfigs caches built mods keyed by manifest path;
	// hashedManifests remembers the content digest each entry was built
	// from. Both evict entries whose files vanish.
	validatedConfigs map[string]*mods.Mod
	hashedManifests  map[string]string

	sessionErrors []ScanError
}

// New creates an empty library over a distribution directory.
func New(distributionDir string, log *zap.SugaredLogger) *Library {
	return &Library{
		distributionDir:  distributionDir,
		log:              log,
		validatedConfigs: map[string]*mods.Mod{},
		hashedManifests:  map[string]string{},
	}
}

// ScanOpts tunes one scan pass.
type ScanOpts struct {
	// StrictFileChecks also runs the manifest's filesystem existence
	// checks against each mod's distribution directory.
	StrictFileChecks bool
	// LoadGUI resolves presentation assets after construction.
	LoadGUI bool
}

// Scan walks the distribution directory for manifests and (re)builds the
// mod set. Individual failures are accumulated in Errors; the scan always
// completes unless the context is cancelled.
func (l *Library) Scan(ctx context.Context, opts ScanOpts) error {
	paths, err := l.discoverManifests()
	if err != nil {
		return err
	}

	l.sessionErrors = nil
	seen := map[string]bool{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[path] = true
		if err := l.loadOne(path, opts); err != nil {
			l.sessionErrors = append(l.sessionErrors, ScanError{ManifestPath: path, Err: err})
			l.log.Warnw("skipping mod", "manifest", path, "error", err)
		}
	}

	// Evict cache entries whose manifest files are gone.
	for path := range l.validatedConfigs {
		if !seen[path] {
			delete(l.validatedConfigs, path)
			delete(l.hashedManifests, path)
		}
	}
	return nil
}

// discoverManifests enumerates manifest.yaml files up to maxScanDepth
// below the distribution dir, plus the legacy remaster/manifest.yaml.
func (l *Library) discoverManifests() ([]string, error) {
	root, err := filepath.Abs(l.distributionDir)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are not fatal to the scan
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if countSeparators(rel)+1 > maxScanDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "manifest.yaml" {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	legacy := filepath.Join(root, "remaster", "manifest.yaml")
	if _, err := os.Stat(legacy); err == nil && !contains(out, legacy) {
		out = append(out, legacy)
	}
	sort.Strings(out)
	return out, nil
}

func countSeparators(rel string) int {
	return strings.Count(rel, string(os.PathSeparator))
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// loadOne parses, validates and constructs the mod at one manifest path,
// reusing the cached instance when the file digest is unchanged.
func (l *Library) loadOne(path string, opts ScanOpts) error {
	digest, err := util.SHA256File(path)
	if err != nil {
		return fmt.Errorf("hashing manifest: %w", err)
	}
	if prev, ok := l.hashedManifests[path]; ok && prev == digest {
		if _, cached := l.validatedConfigs[path]; cached {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	doc, err := manifest.Parse(data)
	if err != nil {
		return err
	}

	distDir := filepath.Dir(path)
	checkOpts := manifest.CheckOpts{}
	if opts.StrictFileChecks {
		checkOpts.Root = distDir
	}
	if ok, diags := manifest.Validate(doc, checkOpts); !ok {
		return fmt.Errorf("manifest failed validation: %s", firstError(diags))
	}

	mod, err := mods.New(doc, distDir)
	if err != nil {
		return err
	}
	if err := mod.LoadTranslations(opts.LoadGUI, l.log); err != nil {
		return err
	}
	if opts.LoadGUI {
		mod.LoadGUIInfo(l.log)
	}

	l.validatedConfigs[path] = mod
	l.hashedManifests[path] = digest
	l.log.Debugw("loaded mod", "manifest", path, "id", mod.UniqueID())
	return nil
}

// Mods returns the loaded mods sorted by unique id.
func (l *Library) Mods() []*mods.Mod {
	out := make([]*mods.Mod, 0, len(l.validatedConfigs))
	for _, m := range l.validatedConfigs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID() < out[j].UniqueID() })
	return out
}

// FindByName returns the first mod with the given name, or nil.
func (l *Library) FindByName(name string) *mods.Mod {
	for _, m := range l.Mods() {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Errors returns the error list accumulated by the last scan.
func (l *Library) Errors() []ScanError { return l.sessionErrors }

func firstError(ds []manifest.Diagnostic) string {
	for _, d := range ds {
		if d.Severity == manifest.SevError {
			return d.String()
		}
	}
	if len(ds) > 0 {
		return ds[0].String()
	}
	return "unknown error"
}
