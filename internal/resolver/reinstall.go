package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/commodctl/internal/game"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/modver"
)

// Reinstall warning keys. Warnings with CanBeReinstalled=true are advisory;
// the rest block the install.
const (
	WarnCanReinstall           = "can_reinstall"
	WarnCanReinstallNewBuild   = "can_reinstall_new_build"
	WarnDifferentLang          = "cant_reinstall_different_lang"
	WarnOverOtherMods          = "cant_reinstall_over_other_mods"
	WarnOverNewerVersion       = "cant_reinstall_over_newer_version"
	WarnOverOtherVersion       = "cant_reinstall_over_other_version"
	WarnOverNewerBuild         = "cant_reinstall_over_newer_build"
	WarnDifferentOptions       = "cant_reinstall_with_different_options"
	WarnUpdateDifferentOptions = "cant_update_with_different_options"
	WarnCompatOptionsLimited   = "to_increase_compat_options_are_limited"
	WarnUpdateOptionsLimited   = "to_update_compat_options_are_limited"
)

// ReinstallVerdict is the outcome of the reinstall eligibility pipeline.
type ReinstallVerdict struct {
	IsReinstall      bool
	CanBeReinstalled bool
	Warning          string
	// ExistingVersion is the installed version being replaced, when any.
	ExistingVersion string
}

// CheckReinstall walks the eligibility decision tree for a candidate over
// the current installed content.
func CheckReinstall(m *mods.Mod, ctx Context) ReinstallVerdict {
	existing, comremOverCompatch, found := existingInstall(m, ctx)
	if !found {
		return ReinstallVerdict{CanBeReinstalled: true}
	}
	verdict := ReinstallVerdict{IsReinstall: true, ExistingVersion: existing.Version}
	blocked := func(warning string) ReinstallVerdict {
		verdict.Warning = warning
		return verdict
	}
	allowed := func(warning string) ReinstallVerdict {
		verdict.CanBeReinstalled = true
		verdict.Warning = warning
		return verdict
	}

	if existing.Language != "not_specified" && existing.Language != m.Language {
		return blocked(WarnDifferentLang)
	}

	if otherModsInstalled(m, ctx) {
		return blocked(WarnOverOtherMods)
	}

	exVer := modver.Parse(existing.Version)
	cand := m.Version
	exNorm, candNorm := exVer, cand
	if m.CompatiblePatchVersions {
		exNorm.Patch, candNorm.Patch = "0", "0"
		if m.CompatibleMinorVersions {
			exNorm.Minor, candNorm.Minor = "0", "0"
		}
	}
	if modver.Less(cand, exVer) {
		if m.CompatiblePatchVersions {
			return blocked(WarnOverNewerVersion)
		}
		return blocked(WarnOverOtherVersion)
	}
	if !modver.Equal(exNorm, candNorm) {
		return blocked(WarnOverOtherVersion)
	}

	switch {
	case m.Build < existing.Build:
		return blocked(WarnOverNewerBuild)

	case m.Build == existing.Build:
		switch {
		case len(m.Options) == 0 && !comremOverCompatch:
			return allowed(WarnCanReinstall)
		case comremOverCompatch:
			return allowed(WarnCanReinstall)
		case sameOptionSet(m, existing):
			if m.SafeReinstallOptions {
				return allowed(WarnCanReinstall)
			}
			return allowed(WarnCompatOptionsLimited)
		}
		return blocked(WarnDifferentOptions)

	default: // candidate build is newer
		switch {
		case len(m.Options) == 0 && !comremOverCompatch:
			return allowed(WarnCanReinstallNewBuild)
		case comremOverCompatch:
			return allowed(WarnCanReinstallNewBuild)
		case sameOptionSet(m, existing):
			if m.SafeReinstallOptions {
				return allowed(WarnCanReinstallNewBuild)
			}
			return allowed(WarnUpdateOptionsLimited)
		}
		return blocked(WarnUpdateDifferentOptions)
	}
}

// existingInstall finds the prior install the candidate would replace. A
// community_patch install counts as a prior install of community_remaster.
func existingInstall(m *mods.Mod, ctx Context) (game.Record, bool, bool) {
	if rec, ok := ctx.Installed[m.Name]; ok {
		return rec, false, true
	}
	if m.Name == "community_remaster" {
		if rec, ok := ctx.Installed["community_patch"]; ok {
			return rec, true, true
		}
	}
	return game.Record{}, false, false
}

// otherModsInstalled reports installs outside the candidate's own
// prerequisite closure, which make an in-place reinstall unsafe.
func otherModsInstalled(m *mods.Mod, ctx Context) bool {
	allowed := map[string]bool{
		m.Name:               true,
		"community_patch":    true,
		"community_remaster": true,
	}
	for _, req := range m.Prerequisites {
		for _, n := range req.Names {
			allowed[n] = true
		}
	}
	for name := range ctx.Installed {
		if !allowed[name] {
			return true
		}
	}
	return false
}

// sameOptionSet compares the installed record's option keys with the
// candidate's option names as sets.
func sameOptionSet(m *mods.Mod, rec game.Record) bool {
	want := m.OptionNames()
	got := make([]string, 0, len(rec.Options))
	for k := range rec.Options {
		got = append(got, k)
	}
	sort.Strings(want)
	sort.Strings(got)
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func reinstallMessage(m *mods.Mod, v ReinstallVerdict) string {
	base := fmt.Sprintf("%s %s cannot replace the existing installation", m.Name, m.Version)
	if v.ExistingVersion != "" {
		base += fmt.Sprintf(" (installed: %s)", v.ExistingVersion)
	}
	return base + ": " + strings.ReplaceAll(v.Warning, "_", " ")
}
