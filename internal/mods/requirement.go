package mods

import (
	"github.com/blackwell-systems/commodctl/internal/manifest"
	"github.com/blackwell-systems/commodctl/internal/modver"
)

// Requirement names other mods a candidate relates to. The same structure
// serves prerequisites and incompatibilities; only the sense of the
// evaluation differs.
type Requirement struct {
	// Names are alternative mod names; matching any one suffices.
	Names []string
	// Versions are comparator strings ANDed together. Empty means any.
	Versions []modver.Constraint
	// RawVersions keeps the comparators as written, for diagnostics.
	RawVersions []string
	// OptionalContent lists option names that must be installed (for a
	// prerequisite) or that trigger the conflict (for an incompatibility).
	OptionalContent []string
}

// AcceptsName reports whether the requirement lists the given mod name.
func (r Requirement) AcceptsName(name string) bool {
	for _, n := range r.Names {
		if n == name {
			return true
		}
	}
	return false
}

func parseRequirements(val any) ([]Requirement, error) {
	if val == nil {
		return nil, nil
	}
	list, ok := val.([]any)
	if !ok {
		return nil, &ManifestError{Reason: "requirement list is not a sequence"}
	}
	out := make([]Requirement, 0, len(list))
	for _, el := range list {
		entry, ok := manifest.ToMap(el)
		if !ok {
			return nil, &ManifestError{Reason: "requirement entry is not a mapping"}
		}
		r := Requirement{Names: manifest.NameList(entry["name"])}
		if len(r.Names) == 0 {
			return nil, &ManifestError{Reason: "requirement entry has no mod names"}
		}
		if vs, ok := entry["versions"].([]any); ok {
			for _, v := range vs {
				s, ok := v.(string)
				if !ok {
					return nil, &ManifestError{Reason: "requirement versions must be strings"}
				}
				r.RawVersions = append(r.RawVersions, s)
				r.Versions = append(r.Versions, modver.ParseConstraint(s))
			}
		}
		if oc, ok := entry["optional_content"].([]any); ok {
			for _, o := range oc {
				s, ok := o.(string)
				if !ok {
					return nil, &ManifestError{Reason: "requirement optional_content must be strings"}
				}
				r.OptionalContent = append(r.OptionalContent, s)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// parsePatcherRequirement normalizes patcher_version_requirement, which may
// be a single comparator, a bare number, or a list. The default is ">=1.10".
func parsePatcherRequirement(val any) []modver.Constraint {
	var raw []string
	switch v := val.(type) {
	case string:
		raw = []string{v}
	case []any:
		for _, el := range v {
			raw = append(raw, stringify(el))
		}
	case nil:
	default:
		raw = []string{stringify(v)}
	}
	if len(raw) == 0 {
		raw = []string{">=1.10"}
	}
	return modver.ParseConstraints(raw)
}
