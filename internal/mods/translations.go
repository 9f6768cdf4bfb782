package mods

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/blackwell-systems/commodctl/internal/manifest"
	"github.com/blackwell-systems/commodctl/internal/modver"
)

// LoadTranslations discovers sibling manifest_<lang>.yaml files next to the
// primary manifest, builds a Mod for each, and cross-checks identity
// equivalence. The operation is idempotent: the map is rebuilt from the
// directory contents on every call.
func (m *Mod) LoadTranslations(loadGUI bool, log *zap.SugaredLogger) error {
	entries, err := os.ReadDir(m.DistributionDir)
	if err != nil {
		return &ManifestError{Reason: fmt.Sprintf("reading distribution dir: %v", err), ModName: m.Name}
	}

	found := map[string]*Mod{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lang, ok := translationLang(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(m.DistributionDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return &ManifestError{Reason: fmt.Sprintf("reading translation %s: %v", e.Name(), err), ModName: m.Name}
		}
		doc, err := manifest.Parse(data)
		if err != nil {
			return &ManifestError{Reason: fmt.Sprintf("translation %s: %v", e.Name(), err), ModName: m.Name}
		}
		if ok, ds := manifest.Validate(doc, manifest.CheckOpts{}); !ok {
			return &ManifestError{Reason: fmt.Sprintf("translation %s failed validation: %s", e.Name(), firstError(ds)), ModName: m.Name}
		}
		tr, err := New(doc, m.DistributionDir)
		if err != nil {
			return err
		}
		if err := m.checkTranslationIdentity(tr, e.Name()); err != nil {
			return err
		}
		if tr.Language != lang {
			log.Warnw("translation language differs from its filename suffix",
				"mod", m.Name, "file", e.Name(), "language", tr.Language)
		}
		if loadGUI {
			tr.LoadGUIInfo(log)
		}
		found[tr.Language] = tr
	}

	m.Translations = found
	return nil
}

// translationLang extracts the language code from "manifest_<lang>.yaml".
func translationLang(filename string) (string, bool) {
	if !strings.HasPrefix(filename, "manifest_") {
		return "", false
	}
	ext := filepath.Ext(filename)
	if ext != ".yaml" && ext != ".yml" {
		return "", false
	}
	lang := strings.TrimSuffix(strings.TrimPrefix(filename, "manifest_"), ext)
	return lang, lang != ""
}

// checkTranslationIdentity enforces the sibling invariants: translations
// share name, version, tags and installment but differ on language.
func (m *Mod) checkTranslationIdentity(tr *Mod, file string) error {
	bad := func(what string) error {
		return &ManifestError{
			Reason:  fmt.Sprintf("translation %s disagrees on %s", file, what),
			ModName: m.Name,
		}
	}
	if tr.Name != m.Name {
		return bad("name")
	}
	if !modver.EqualExact(tr.Version, m.Version) {
		return bad("version")
	}
	if tr.Installment != m.Installment {
		return bad("installment")
	}
	if tr.Language == m.Language {
		return &ManifestError{
			Reason:  fmt.Sprintf("translation %s has the same language as the primary manifest", file),
			ModName: m.Name,
		}
	}
	if !sameTagSet(tr.Tags, m.Tags) {
		return bad("tags")
	}
	return nil
}

func sameTagSet(a, b []Tag) bool {
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i, t := range a {
		as[i] = string(t)
	}
	for i, t := range b {
		bs[i] = string(t)
	}
	sort.Strings(as)
	sort.Strings(bs)
	as = dedup(as)
	bs = dedup(bs)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}

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
