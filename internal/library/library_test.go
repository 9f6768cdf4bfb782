package library_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/blackwell-systems/commodctl/internal/library"
)

func manifestFor(name, version string) string {
	return fmt.Sprintf(`name: %s
display_name: %s
version: %q
build: abc1234
description: Test fixture.
authors: nobody
language: ru
patcher_version_requirement: [">=1.10"]
prerequisites: []
`, name, name, version)
}

func writeMod(t *testing.T, root string, subdirs []string, content string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, subdirs...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newLibrary(t *testing.T, root string) *library.Library {
	t.Helper()
	return library.New(root, zap.NewNop().Sugar())
}

func TestScan_FindsMods(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, []string{"alpha"}, manifestFor("alpha_mod", "1.0"))
	writeMod(t, root, []string{"beta", "nested"}, manifestFor("beta_mod", "2.1"))

	lib := newLibrary(t, root)
	if err := lib.Scan(context.Background(), library.ScanOpts{}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := len(lib.Mods()); got != 2 {
		t.Fatalf("mods = %d, want 2", got)
	}
	if lib.FindByName("beta_mod") == nil {
		t.Error("beta_mod not found by name")
	}
	if lib.FindByName("ghost_mod") != nil {
		t.Error("FindByName returned a mod that does not exist")
	}
	if errs := lib.Errors(); len(errs) != 0 {
		t.Errorf("unexpected scan errors: %v", errs)
	}
}

func TestScan_DepthLimit(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, []string{"a", "b", "c"}, manifestFor("deep_ok", "1.0"))
	writeMod(t, root, []string{"a", "b", "c", "d"}, manifestFor("too_deep", "1.0"))

	lib := newLibrary(t, root)
	if err := lib.Scan(context.Background(), library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	if lib.FindByName("deep_ok") == nil {
		t.Error("mod at the depth limit should be found")
	}
	if lib.FindByName("too_deep") != nil {
		t.Error("mod below the depth limit should be skipped")
	}
}

func TestScan_BrokenModDoesNotStopScan(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, []string{"good"}, manifestFor("good_mod", "1.0"))
	writeMod(t, root, []string{"bad"}, "name: broken_mod\nversion: 1.0\n")

	lib := newLibrary(t, root)
	if err := lib.Scan(context.Background(), library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	if lib.FindByName("good_mod") == nil {
		t.Error("good mod should survive a broken sibling")
	}
	if got := len(lib.Errors()); got != 1 {
		t.Errorf("scan errors = %d, want 1", got)
	}
}

func TestScan_CacheAndEviction(t *testing.T) {
	root := t.TempDir()
	path := writeMod(t, root, []string{"alpha"}, manifestFor("alpha_mod", "1.0"))

	lib := newLibrary(t, root)
	ctx := context.Background()
	if err := lib.Scan(ctx, library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	first := lib.FindByName("alpha_mod")
	if first == nil {
		t.Fatal("alpha_mod not loaded")
	}

	// Unchanged file: the cached instance is reused.
	if err := lib.Scan(ctx, library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	if lib.FindByName("alpha_mod") != first {
		t.Error("unchanged manifest should reuse the cached mod")
	}

	// Changed content: the entry is rebuilt.
	if err := os.WriteFile(path, []byte(manifestFor("alpha_mod", "1.1")), 0644); err != nil {
		t.Fatal(err)
	}
	if err := lib.Scan(ctx, library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	updated := lib.FindByName("alpha_mod")
	if updated == first {
		t.Error("changed manifest should rebuild the mod")
	}
	if updated.Version.String() != "1.1.0" {
		t.Errorf("version = %q, want 1.1.0", updated.Version)
	}

	// Vanished file: the entry is evicted.
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}
	if err := lib.Scan(ctx, library.ScanOpts{}); err != nil {
		t.Fatal(err)
	}
	if lib.FindByName("alpha_mod") != nil {
		t.Error("deleted manifest should be evicted from the library")
	}
}

func TestScan_StrictFileChecks(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, []string{"alpha"}, manifestFor("alpha_mod", "1.0"))

	lib := newLibrary(t, root)
	if err := lib.Scan(context.Background(), library.ScanOpts{StrictFileChecks: true}); err != nil {
		t.Fatal(err)
	}
	// No data/ directory next to the manifest, so strict mode rejects it.
	if lib.FindByName("alpha_mod") != nil {
		t.Error("strict scan should reject a mod without base content")
	}
	if len(lib.Errors()) != 1 {
		t.Errorf("scan errors = %d, want 1", len(lib.Errors()))
	}

	if err := os.MkdirAll(filepath.Join(root, "alpha", "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := lib.Scan(context.Background(), library.ScanOpts{StrictFileChecks: true}); err != nil {
		t.Fatal(err)
	}
	if lib.FindByName("alpha_mod") == nil {
		t.Error("strict scan should accept the mod once data/ exists")
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, []string{"alpha"}, manifestFor("alpha_mod", "1.0"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newLibrary(t, root).Scan(ctx, library.ScanOpts{}); err == nil {
		t.Error("cancelled context should abort the scan")
	}
}
