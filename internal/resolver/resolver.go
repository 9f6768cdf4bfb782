// Package resolver decides whether a candidate mod can be installed on a
// probed game copy: mod-manager version gating, prerequisites,
// incompatibilities, installment match and reinstall eligibility. All
// outcomes are structured values; the resolver never returns an error.
package resolver

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/commodctl/internal/game"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/modver"
)

// DiagKind classifies a resolver diagnostic.
type DiagKind int

const (
	DiagRequirementUnmet DiagKind = iota
	DiagIncompatibilityHit
	DiagInstallmentMismatch
	DiagModManagerTooOld
	DiagModManagerTooNew
	DiagReinstallBlocked
)

// Diagnostic is one structured finding with a human message.
type Diagnostic struct {
	Kind    DiagKind
	Key     string // stable machine key, e.g. "compatch_mod_incompatible_with_comrem"
	Message string
}

// Context is the installed-state input shared by all checks.
type Context struct {
	Installed       map[string]game.Record
	Descriptions    map[string]string
	GameInstallment string
	// PatcherVersion is the running mod manager's own version.
	PatcherVersion modver.Version
}

// Result is the full verdict for one candidate mod.
type Result struct {
	CanInstall bool

	ManagerCompatible     bool
	ManagerTooNew         bool
	InstallmentCompatible bool
	PrereqsSatisfied      bool
	Compatible            bool
	Reinstall             ReinstallVerdict

	Diagnostics []Diagnostic
}

// Check runs the whole pipeline and combines the verdict.
func Check(m *mods.Mod, ctx Context) Result {
	var res Result

	res.ManagerCompatible, res.ManagerTooNew = checkManagerVersion(m, ctx, &res.Diagnostics)
	res.InstallmentCompatible = checkInstallment(m, ctx, &res.Diagnostics)
	res.PrereqsSatisfied = checkPrerequisites(m, ctx, &res.Diagnostics)
	res.Compatible = checkIncompatibilities(m, ctx, &res.Diagnostics)
	res.Reinstall = CheckReinstall(m, ctx)
	if res.Reinstall.IsReinstall && !res.Reinstall.CanBeReinstalled {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagReinstallBlocked,
			Key:     res.Reinstall.Warning,
			Message: reinstallMessage(m, res.Reinstall),
		})
	}

	res.CanInstall = res.ManagerCompatible &&
		res.InstallmentCompatible &&
		res.Compatible &&
		res.PrereqsSatisfied &&
		res.Reinstall.CanBeReinstalled
	return res
}

// checkManagerVersion evaluates patcher_version_requirement against the
// running tool version. Identifiers are stripped on both sides; an
// equality comparator pointing above the tool version flags "too new".
func checkManagerVersion(m *mods.Mod, ctx Context, diags *[]Diagnostic) (ok, tooNew bool) {
	tool := ctx.PatcherVersion
	tool.Identifier = ""

	ok = true
	for _, c := range m.PatcherVersion {
		c.Version.Identifier = ""
		if c.Match(tool, false) {
			continue
		}
		ok = false
		if c.Op == modver.OpEq && modver.Less(tool, c.Version) {
			tooNew = true
			*diags = append(*diags, Diagnostic{
				Kind:    DiagModManagerTooNew,
				Key:     "mod_manager_too_new",
				Message: fmt.Sprintf("%s requires mod manager %s, running %s is too old for an exact match", m.Name, c.Raw, tool),
			})
			continue
		}
		*diags = append(*diags, Diagnostic{
			Kind:    DiagModManagerTooOld,
			Key:     "mod_manager_version",
			Message: fmt.Sprintf("%s requires mod manager %s, running %s", m.Name, c.Raw, tool),
		})
	}
	return ok, tooNew
}

func checkInstallment(m *mods.Mod, ctx Context, diags *[]Diagnostic) bool {
	if string(m.Installment) == ctx.GameInstallment {
		return true
	}
	*diags = append(*diags, Diagnostic{
		Kind:    DiagInstallmentMismatch,
		Key:     "incompatible_game_installment",
		Message: fmt.Sprintf("%s targets %s but the game is %s", m.Name, m.Installment, ctx.GameInstallment),
	})
	return false
}

// Sense selects how a requirement list is evaluated.
type Sense int

const (
	SenseRequire Sense = iota
	SenseForbid
)

// Satisfaction is the outcome of evaluating one requirement entry.
type Satisfaction struct {
	OK          bool
	MatchedName string
	Key         string
	Message     string
	Style       modver.Style
}

func checkPrerequisites(m *mods.Mod, ctx Context, diags *[]Diagnostic) bool {
	ok := true
	for _, req := range m.Prerequisites {
		sat := Evaluate(req, SenseRequire, m, ctx)
		if !sat.OK {
			ok = false
			*diags = append(*diags, Diagnostic{Kind: DiagRequirementUnmet, Key: sat.Key, Message: sat.Message})
		}
	}
	if !checkStrictRequirements(m, ctx, diags) {
		ok = false
	}
	return ok
}

// checkStrictRequirements applies the closure rule: a strict vanilla mod
// installs only on a clean game, and a strict mod with prerequisites
// tolerates nothing outside its own prerequisite names.
func checkStrictRequirements(m *mods.Mod, ctx Context, diags *[]Diagnostic) bool {
	if !m.StrictRequirements {
		return true
	}
	allowed := map[string]bool{m.Name: true}
	if !m.IsVanilla() {
		allowed["community_patch"] = true
		for _, req := range m.Prerequisites {
			for _, n := range req.Names {
				allowed[n] = true
			}
		}
	}
	var offending []string
	for name := range ctx.Installed {
		if !allowed[name] {
			offending = append(offending, name)
		}
	}
	if len(offending) == 0 {
		return true
	}
	*diags = append(*diags, Diagnostic{
		Kind:    DiagRequirementUnmet,
		Key:     "strict_requirements",
		Message: fmt.Sprintf("%s requires a game without other mods, found: %s", m.Name, strings.Join(offending, ", ")),
	})
	return false
}

func checkIncompatibilities(m *mods.Mod, ctx Context, diags *[]Diagnostic) bool {
	ok := true
	for _, req := range m.Incompatible {
		sat := Evaluate(req, SenseForbid, m, ctx)
		if !sat.OK {
			ok = false
			*diags = append(*diags, Diagnostic{Kind: DiagIncompatibilityHit, Key: sat.Key, Message: sat.Message})
		}
	}
	return ok
}

// Evaluate checks one requirement entry in the given sense. For
// SenseRequire every facet must hold; for SenseForbid the entry fails only
// when all specified facets hit simultaneously.
func Evaluate(req mods.Requirement, sense Sense, m *mods.Mod, ctx Context) Satisfaction {
	sat := Satisfaction{OK: true, Style: modver.ClassifyStyle(req.Versions)}

	matched, rec, nameHit := matchName(req, ctx)
	sat.MatchedName = matched

	if sense == SenseRequire {
		if !nameHit {
			sat.OK = false
			sat.Key = "prerequisite_not_found"
			sat.Message = fmt.Sprintf("%s requires %s, which is not installed",
				m.Name, displayNames(req.Names, ctx))
			return sat
		}
		// A plain community_patch prerequisite does not carry over to a
		// game upgraded to the remaster unless the mod accepts the
		// remaster explicitly.
		if matched == "community_patch" {
			_, remasterInstalled := ctx.Installed["community_remaster"]
			if remasterInstalled && m.Name != "community_remaster" && !req.AcceptsName("community_remaster") {
				sat.OK = false
				sat.Key = "compatch_mod_incompatible_with_comrem"
				sat.Message = fmt.Sprintf("%s targets the community patch and cannot run on the installed community remaster", m.Name)
				return sat
			}
		}
		if !versionHit(req, rec) {
			sat.OK = false
			sat.Key = "prerequisite_version"
			sat.Message = fmt.Sprintf("%s requires %s %s, found %s",
				m.Name, describe(matched, ctx), formatConstraints(req, sat.Style), rec.Version)
			return sat
		}
		if missing := missingOptions(req, rec); len(missing) > 0 {
			sat.OK = false
			sat.Key = "prerequisite_options"
			sat.Message = fmt.Sprintf("%s requires %s with options %s installed",
				m.Name, describe(matched, ctx), strings.Join(missing, ", "))
		}
		return sat
	}

	// SenseForbid: absence is compatibility.
	if !nameHit {
		return sat
	}
	verHit := len(req.Versions) == 0 || versionHit(req, rec)
	optHit := len(req.OptionalContent) == 0 || anyOptionInstalled(req, rec)
	if verHit && optHit {
		sat.OK = false
		sat.Key = "incompatible_mod_installed"
		sat.Message = fmt.Sprintf("%s is incompatible with installed %s %s",
			m.Name, describe(matched, ctx), rec.Version)
	}
	return sat
}

func matchName(req mods.Requirement, ctx Context) (string, game.Record, bool) {
	for _, n := range req.Names {
		if rec, ok := ctx.Installed[n]; ok {
			return n, rec, true
		}
	}
	return "", game.Record{}, false
}

// versionHit ANDs the requirement's comparators against the installed
// version. Equality here does consider the identifier.
func versionHit(req mods.Requirement, rec game.Record) bool {
	if len(req.Versions) == 0 {
		return true
	}
	installed := modver.Parse(rec.Version)
	for _, c := range req.Versions {
		if !c.Match(installed, true) {
			return false
		}
	}
	return true
}

// missingOptions lists required options that are absent or skipped.
func missingOptions(req mods.Requirement, rec game.Record) []string {
	var missing []string
	for _, opt := range req.OptionalContent {
		if v, ok := rec.Options[opt]; !ok || v == "skip" {
			missing = append(missing, opt)
		}
	}
	return missing
}

func anyOptionInstalled(req mods.Requirement, rec game.Record) bool {
	for _, opt := range req.OptionalContent {
		if v, ok := rec.Options[opt]; ok && v != "skip" {
			return true
		}
	}
	return false
}

// describe renders an installed mod by its display description when known.
func describe(name string, ctx Context) string {
	if d, ok := ctx.Descriptions[name]; ok && d != "" {
		return d
	}
	return name
}

func displayNames(names []string, ctx Context) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = describe(n, ctx)
	}
	return strings.Join(out, " or ")
}

// formatConstraints renders a comparator list for diagnostics, using the
// requirement style to pick a compact form for ranges.
func formatConstraints(req mods.Requirement, style modver.Style) string {
	if len(req.RawVersions) == 0 {
		return "any version"
	}
	switch style {
	case modver.StyleRange:
		return strings.Join(req.RawVersions, " and ")
	case modver.StyleStrict:
		return "exactly " + strings.Join(req.RawVersions, " or ")
	}
	return strings.Join(req.RawVersions, ", ")
}
