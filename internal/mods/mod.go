// Package mods holds the in-memory model of a validated mod: identity,
// language variants, optional content, prerequisites and incompatibilities.
package mods

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/commodctl/internal/manifest"
	"github.com/blackwell-systems/commodctl/internal/modver"
)

// Installment identifies which game of the series a mod targets.
type Installment string

const (
	InstallmentExMachina Installment = "exmachina"
	InstallmentM113      Installment = "m113"
	InstallmentArcade    Installment = "arcade"
	InstallmentUnknown   Installment = "unknown"
)

// Short returns the bracketed tag used inside unique ids.
func (i Installment) Short() string {
	switch i {
	case InstallmentExMachina:
		return "ex"
	case InstallmentM113:
		return "m113"
	case InstallmentArcade:
		return "arc"
	}
	return "unk"
}

// ParseInstallment maps a manifest value to an Installment.
func ParseInstallment(s string) (Installment, bool) {
	switch Installment(s) {
	case InstallmentExMachina, InstallmentM113, InstallmentArcade:
		return Installment(s), true
	}
	return InstallmentUnknown, false
}

// Tag is a coarse category label for browsing.
type Tag string

const (
	TagBugfix   Tag = "bugfix"
	TagGameplay Tag = "gameplay"
	TagStory    Tag = "story"
	TagVisual   Tag = "visual"
	TagAudio    Tag = "audio"
	TagWeapons  Tag = "weapons"
	TagVehicles Tag = "vehicles"
	TagUI       Tag = "ui"
)

var knownTags = map[Tag]bool{
	TagBugfix: true, TagGameplay: true, TagStory: true, TagVisual: true,
	TagAudio: true, TagWeapons: true, TagVehicles: true, TagUI: true,
}

// Field length caps from the manifest contract.
const (
	maxNameLen        = 64
	maxDisplayNameLen = 64
	maxDescriptionLen = 2048
	maxAuthorsLen     = 256
	maxVersionLen     = 64
	maxBuildLen       = 7
	maxURLLen         = 128
)

// ManifestError reports a schema or semantic failure while building a Mod.
type ManifestError struct {
	Reason  string
	ModName string
}

func (e *ManifestError) Error() string {
	if e.ModName == "" {
		return "manifest error: " + e.Reason
	}
	return fmt.Sprintf("manifest error in %q: %s", e.ModName, e.Reason)
}

// Screenshot is one screenshot entry, optionally with a comparison image.
type Screenshot struct {
	Img     string
	Text    string
	Compare string
}

// Mod is the rich model of one validated mod package.
type Mod struct {
	Name        string
	DisplayName string
	Description string
	Authors     string
	Version     modver.Version
	Build       string
	Language    string
	Installment Installment

	URL        string
	TrailerURL string

	Prerequisites  []Requirement
	Incompatible   []Requirement
	PatcherVersion []modver.Constraint
	Options        []OptionalContent
	Tags           []Tag

	CompatibleMinorVersions bool
	CompatiblePatchVersions bool
	SafeReinstallOptions    bool
	StrictRequirements      bool
	NoBaseContent           bool

	PatcherOptions PatcherOptions
	ConfigOptions  map[string]string

	DistributionDir string
	Logo            string
	InstallBanner   string
	ChangeLog       string
	OtherInfo       string
	Screenshots     []Screenshot

	// Translations maps language code to the sibling manifest's Mod.
	Translations map[string]*Mod
}

// PatcherOptions carries the per-mod overrides for configurable exe patches.
type PatcherOptions struct {
	Gravity          float64
	HasGravity       bool
	SkinsInShop      int
	HasSkinsInShop   bool
	BlastDamageFF    bool
	HasBlastDamageFF bool
	GameFont         string
}

// New assembles a Mod from a parsed manifest document. Construction is
// fail-fast: rules already covered by the validator are re-checked
// defensively, plus the semantic invariants only a built object can see.
func New(doc map[string]any, distributionDir string) (*Mod, error) {
	m := &Mod{
		DistributionDir: distributionDir,
		Language:        "ru",
		Installment:     InstallmentExMachina,
		Translations:    map[string]*Mod{},
	}

	var err error
	if m.Name, err = reqString(doc, "name", maxNameLen); err != nil {
		return nil, err
	}
	fail := func(reason string) (*Mod, error) {
		return nil, &ManifestError{Reason: reason, ModName: m.Name}
	}
	// Names become path components under the distribution dir; a
	// separator would let a manifest escape it.
	if strings.ContainsAny(m.Name, `/\`) {
		return fail("name cannot contain path separators")
	}

	if m.DisplayName, err = reqString(doc, "display_name", maxDisplayNameLen); err != nil {
		return nil, withName(err, m.Name)
	}
	if m.Description, err = reqString(doc, "description", maxDescriptionLen); err != nil {
		return nil, withName(err, m.Name)
	}
	if m.Authors, err = reqString(doc, "authors", maxAuthorsLen); err != nil {
		return nil, withName(err, m.Name)
	}

	rawVersion := stringify(doc["version"])
	if rawVersion == "" || len(rawVersion) > maxVersionLen {
		return fail("version is missing or too long")
	}
	m.Version = modver.Parse(rawVersion)

	m.Build = stringify(doc["build"])
	if m.Build == "" || len(m.Build) > maxBuildLen {
		return fail("build is missing or longer than 7 characters")
	}

	if lang, ok := doc["language"].(string); ok && lang != "" {
		m.Language = lang
	}
	if inst, ok := doc["installment"].(string); ok && inst != "" {
		parsed, valid := ParseInstallment(inst)
		if !valid {
			return fail(fmt.Sprintf("unknown installment %q", inst))
		}
		m.Installment = parsed
	}

	m.URL = optString(doc, "link", maxURLLen)
	m.TrailerURL = optString(doc, "trailer_url", maxURLLen)
	m.Logo = optString(doc, "logo", 0)
	m.InstallBanner = optString(doc, "install_banner", 0)
	m.ChangeLog = optString(doc, "change_log", 0)
	m.OtherInfo = optString(doc, "other_info", 0)

	m.CompatiblePatchVersions = manifest.Boolish(doc["compatible_patch_versions"])
	m.CompatibleMinorVersions = manifest.Boolish(doc["compatible_minor_versions"])
	if m.CompatibleMinorVersions {
		// Minor compatibility subsumes patch compatibility.
		m.CompatiblePatchVersions = true
	}
	m.SafeReinstallOptions = manifest.Boolish(doc["safe_reinstall_options"])
	m.StrictRequirements = manifest.Boolish(doc["strict_requirements"])
	m.NoBaseContent = manifest.Boolish(doc["no_base_content"])

	if m.Prerequisites, err = parseRequirements(doc["prerequisites"]); err != nil {
		return nil, withName(err, m.Name)
	}
	if doc["prerequisites"] == nil {
		return fail("prerequisites field is missing")
	}
	if m.Incompatible, err = parseRequirements(doc["incompatible"]); err != nil {
		return nil, withName(err, m.Name)
	}
	for _, inc := range m.Incompatible {
		for _, n := range inc.Names {
			if n == "community_patch" {
				return fail("community_patch cannot be listed as incompatible")
			}
		}
	}
	for _, pre := range m.Prerequisites {
		if len(pre.OptionalContent) > 0 {
			for _, n := range pre.Names {
				if n == "community_patch" {
					return fail("community_patch prerequisite cannot require optional content")
				}
			}
		}
	}

	m.PatcherVersion = parsePatcherRequirement(doc["patcher_version_requirement"])

	if m.Options, err = parseOptionalContent(doc["optional_content"]); err != nil {
		return nil, withName(err, m.Name)
	}
	if len(m.Options) == 0 && m.NoBaseContent {
		return fail("no_base_content requires optional_content")
	}

	if tags, ok := doc["tags"].([]any); ok {
		for _, t := range tags {
			s, _ := t.(string)
			tag := Tag(strings.ToLower(s))
			if !knownTags[tag] {
				return fail(fmt.Sprintf("unknown tag %q", s))
			}
			m.Tags = append(m.Tags, tag)
		}
	}

	if po, ok := manifest.ToMap(doc["patcher_options"]); ok {
		m.PatcherOptions = parsePatcherOptions(po)
	}
	if co, ok := manifest.ToMap(doc["config_options"]); ok {
		m.ConfigOptions = map[string]string{}
		for k, v := range co {
			m.ConfigOptions[k] = stringify(v)
		}
	}

	if shots, ok := doc["screenshots"].([]any); ok {
		for _, el := range shots {
			sm, ok := manifest.ToMap(el)
			if !ok {
				continue
			}
			img, _ := sm["img"].(string)
			text, _ := sm["text"].(string)
			compare, _ := sm["compare"].(string)
			m.Screenshots = append(m.Screenshots, Screenshot{Img: img, Text: text, Compare: compare})
		}
	}

	return m, nil
}

// IsVanilla reports whether the mod installs on a clean game only.
func (m *Mod) IsVanilla() bool { return len(m.Prerequisites) == 0 }

// UniqueID builds the stable identity string for the mod.
func (m *Mod) UniqueID() string {
	versionFlat := strings.ReplaceAll(m.Version.String(), ".", "")
	return Sanitize(m.Name + versionFlat + m.Build + m.Language + "[" + m.Installment.Short() + "]")
}

// Sanitize strips path separators and whitespace from an identity string.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// OptionNames lists the names of all optional content entries.
func (m *Mod) OptionNames() []string {
	out := make([]string, 0, len(m.Options))
	for _, o := range m.Options {
		out = append(out, o.Name)
	}
	return out
}

// OptionByName finds an optional content entry, or nil.
func (m *Mod) OptionByName(name string) *OptionalContent {
	for i := range m.Options {
		if m.Options[i].Name == name {
			return &m.Options[i]
		}
	}
	return nil
}

func reqString(doc map[string]any, field string, maxLen int) (string, error) {
	s, ok := doc[field].(string)
	if !ok || s == "" {
		return "", &ManifestError{Reason: fmt.Sprintf("%s is missing or not a string", field)}
	}
	if maxLen > 0 && len(s) > maxLen {
		return "", &ManifestError{Reason: fmt.Sprintf("%s is longer than %d characters", field, maxLen)}
	}
	return s, nil
}

func optString(doc map[string]any, field string, maxLen int) string {
	s, _ := doc[field].(string)
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func withName(err error, name string) error {
	if me, ok := err.(*ManifestError); ok && me.ModName == "" {
		me.ModName = name
	}
	return err
}

func parsePatcherOptions(po map[string]any) PatcherOptions {
	var out PatcherOptions
	if g, ok := po["gravity"]; ok {
		switch n := g.(type) {
		case float64:
			out.Gravity, out.HasGravity = n, true
		case int:
			out.Gravity, out.HasGravity = float64(n), true
		}
	}
	if s, ok := po["skins_in_shop"]; ok {
		if n, ok := s.(int); ok {
			out.SkinsInShop, out.HasSkinsInShop = n, true
		}
	}
	if b, ok := po["blast_damage_friendly_fire"]; ok {
		out.BlastDamageFF, out.HasBlastDamageFF = manifest.Boolish(b), true
	}
	out.GameFont, _ = po["game_font"].(string)
	return out
}
