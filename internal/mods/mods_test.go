package mods_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/blackwell-systems/commodctl/internal/manifest"
	"github.com/blackwell-systems/commodctl/internal/mods"
)

func baseDoc() map[string]any {
	return map[string]any{
		"name":                        "awesome_mod",
		"display_name":                "Awesome Mod",
		"version":                     "1.2.3",
		"build":                       "abc1234",
		"description":                 "A mod that does things.",
		"authors":                     "Alice, Bob",
		"patcher_version_requirement": []any{">=1.10"},
		"prerequisites":               []any{},
	}
}

func TestNew_Defaults(t *testing.T) {
	m, err := mods.New(baseDoc(), "/mods/awesome")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Language != "ru" {
		t.Errorf("default language = %q, want ru", m.Language)
	}
	if m.Installment != mods.InstallmentExMachina {
		t.Errorf("default installment = %q", m.Installment)
	}
	if !m.IsVanilla() {
		t.Error("mod with no prerequisites should be vanilla")
	}
	if m.Version.String() != "1.2.3" {
		t.Errorf("version = %q", m.Version)
	}
}

func TestNew_UniqueID(t *testing.T) {
	m, err := mods.New(baseDoc(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := "awesome_mod123abc1234ru[ex]"
	if got := m.UniqueID(); got != want {
		t.Errorf("UniqueID = %q, want %q", got, want)
	}
}

func TestSanitize(t *testing.T) {
	got := mods.Sanitize("a b/c\\d\te\n")
	if got != "abcde" {
		t.Errorf("Sanitize = %q", got)
	}
}

func TestNew_MinorImpliesPatchCompat(t *testing.T) {
	doc := baseDoc()
	doc["compatible_minor_versions"] = true
	m, err := mods.New(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if !m.CompatiblePatchVersions {
		t.Error("compatible_minor_versions should imply compatible_patch_versions")
	}
}

func TestNew_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing name", func(d map[string]any) { delete(d, "name") }},
		{"missing prerequisites", func(d map[string]any) { delete(d, "prerequisites") }},
		{"long build", func(d map[string]any) { d["build"] = "12345678" }},
		{"unknown installment", func(d map[string]any) { d["installment"] = "mars" }},
		{"unknown tag", func(d map[string]any) { d["tags"] = []any{"romance"} }},
		{"no_base_content without options", func(d map[string]any) { d["no_base_content"] = true }},
		{"incompatible community_patch", func(d map[string]any) {
			d["incompatible"] = []any{map[string]any{"name": "community_patch"}}
		}},
		{"community_patch prereq with options", func(d map[string]any) {
			d["prerequisites"] = []any{map[string]any{
				"name":             "community_patch",
				"optional_content": []any{"x"},
			}}
		}},
		{"reserved option name", func(d map[string]any) {
			d["optional_content"] = []any{map[string]any{"name": "version", "display_name": "V"}}
		}},
		{"forced with default", func(d map[string]any) {
			d["optional_content"] = []any{map[string]any{
				"name": "extra", "display_name": "Extra",
				"forced_option": true, "default_option": "install",
			}}
		}},
		{"name with slash", func(d map[string]any) { d["name"] = "evil/mod" }},
		{"name with backslash", func(d map[string]any) { d["name"] = `evil\mod` }},
		{"option name with separator", func(d map[string]any) {
			d["optional_content"] = []any{map[string]any{"name": "../escape", "display_name": "E"}}
		}},
		{"setting name with separator", func(d map[string]any) {
			d["optional_content"] = []any{map[string]any{
				"name": "textures", "display_name": "T",
				"install_settings": []any{
					map[string]any{"name": "h/d"},
					map[string]any{"name": "sd"},
				},
			}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := baseDoc()
			tc.mutate(doc)
			_, err := mods.New(doc, "")
			if err == nil {
				t.Fatal("expected error")
			}
			var me *mods.ManifestError
			if !errors.As(err, &me) {
				t.Fatalf("error type %T, want *ManifestError", err)
			}
		})
	}
}

func TestNew_Requirements(t *testing.T) {
	doc := baseDoc()
	doc["prerequisites"] = []any{
		map[string]any{
			"name":     []any{"community_remaster", "community_remaster_dev"},
			"versions": []any{">=1.14", "<2.0"},
		},
	}
	m, err := mods.New(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Prerequisites) != 1 {
		t.Fatalf("prerequisites = %d", len(m.Prerequisites))
	}
	pre := m.Prerequisites[0]
	if !pre.AcceptsName("community_remaster_dev") {
		t.Error("AcceptsName should match any listed name")
	}
	if pre.AcceptsName("other_mod") {
		t.Error("AcceptsName matched an unlisted name")
	}
	if len(pre.Versions) != 2 {
		t.Errorf("constraints = %d, want 2", len(pre.Versions))
	}
}

func TestNew_PatcherRequirementDefault(t *testing.T) {
	doc := baseDoc()
	delete(doc, "patcher_version_requirement")
	m, err := mods.New(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.PatcherVersion) != 1 || m.PatcherVersion[0].Raw != ">=1.10" {
		t.Errorf("patcher requirement = %+v, want default >=1.10", m.PatcherVersion)
	}
}

func TestOptionalContent_Choices(t *testing.T) {
	doc := baseDoc()
	doc["optional_content"] = []any{
		map[string]any{
			"name": "textures", "display_name": "Textures",
			"install_settings": []any{
				map[string]any{"name": "hd"},
				map[string]any{"name": "sd"},
			},
			"default_option": "hd",
		},
		map[string]any{
			"name": "extra", "display_name": "Extra",
			"forced_option": true,
		},
	}
	m, err := mods.New(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	tex := m.OptionByName("textures")
	if tex == nil {
		t.Fatal("textures option not found")
	}
	if tex.DefaultOption != "hd" {
		t.Errorf("default = %q", tex.DefaultOption)
	}
	for value, want := range map[string]bool{
		"hd": true, "sd": true, "skip": true, "yes": false, "4k": false,
	} {
		if got := tex.ValidChoice(value); got != want {
			t.Errorf("textures.ValidChoice(%q) = %v, want %v", value, got, want)
		}
	}

	extra := m.OptionByName("extra")
	if extra == nil {
		t.Fatal("extra option not found")
	}
	if extra.ValidChoice("skip") {
		t.Error("forced option must not accept skip")
	}
	if !extra.ValidChoice("yes") {
		t.Error("forced simple option should accept yes")
	}
}

const primaryManifest = `
name: awesome_mod
display_name: Awesome Mod
version: 1.2.3
build: abc1234
description: A mod.
authors: Alice
language: ru
patcher_version_requirement: [">=1.10"]
prerequisites: []
`

const englishManifest = `
name: awesome_mod
display_name: Awesome Mod (EN)
version: 1.2.3
build: abc1234
description: A mod, in English.
authors: Alice
language: en
patcher_version_requirement: [">=1.10"]
prerequisites: []
`

func TestLoadTranslations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), primaryManifest)
	writeFile(t, filepath.Join(dir, "manifest_en.yaml"), englishManifest)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a manifest")

	m := buildMod(t, primaryManifest, dir)
	log := zap.NewNop().Sugar()
	if err := m.LoadTranslations(false, log); err != nil {
		t.Fatalf("LoadTranslations: %v", err)
	}
	if len(m.Translations) != 1 {
		t.Fatalf("translations = %d, want 1", len(m.Translations))
	}
	en := m.Translations["en"]
	if en == nil || en.Language != "en" {
		t.Fatalf("missing en translation: %+v", m.Translations)
	}

	// Re-running rebuilds the map rather than accumulating.
	if err := m.LoadTranslations(false, log); err != nil {
		t.Fatal(err)
	}
	if len(m.Translations) != 1 {
		t.Errorf("translations after reload = %d, want 1", len(m.Translations))
	}
}

func TestLoadTranslations_IdentityMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), primaryManifest)
	// Wrong version makes the sibling a different mod, not a translation.
	bad := "name: awesome_mod\ndisplay_name: X\nversion: 2.0.0\nbuild: abc1234\n" +
		"description: d\nauthors: a\nlanguage: en\n" +
		"patcher_version_requirement: [\">=1.10\"]\nprerequisites: []\n"
	writeFile(t, filepath.Join(dir, "manifest_en.yaml"), bad)

	m := buildMod(t, primaryManifest, dir)
	if err := m.LoadTranslations(false, zap.NewNop().Sugar()); err == nil {
		t.Fatal("expected identity mismatch error")
	}
}

func TestLoadGUIInfo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "logo.png"), "img")
	writeFile(t, filepath.Join(dir, "shot1.jpg"), "img")

	doc := baseDoc()
	doc["logo"] = "logo.png"
	doc["install_banner"] = "missing.png"
	doc["change_log"] = "changes.exe"
	doc["screenshots"] = []any{
		map[string]any{"img": "shot1.jpg", "text": "First"},
		map[string]any{"img": "gone.png"},
	}
	m, err := mods.New(doc, dir)
	if err != nil {
		t.Fatal(err)
	}

	m.LoadGUIInfo(zap.NewNop().Sugar())
	if m.Logo != "logo.png" {
		t.Errorf("logo = %q", m.Logo)
	}
	if m.InstallBanner != "" {
		t.Error("missing banner file should be cleared")
	}
	if m.ChangeLog != "" {
		t.Error("disallowed extension should be cleared")
	}
	if len(m.Screenshots) != 1 || m.Screenshots[0].Img != "shot1.jpg" {
		t.Errorf("screenshots = %+v", m.Screenshots)
	}
}

func buildMod(t *testing.T, src, dir string) *mods.Mod {
	t.Helper()
	doc, err := manifest.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	m, err := mods.New(doc, dir)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
