package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CheckOpts gates the optional filesystem checks. With a non-empty Root the
// validator checks content directories on disk; with ArchiveFiles set it
// checks against that file list instead (used by external archive readers
// before extraction).
type CheckOpts struct {
	Root         string
	ArchiveFiles []string
	Sink         Sink
}

// Parse decodes manifest YAML bytes into a generic document. A decode
// failure is reported through the returned error; Validate treats a nil
// document as a failing input, so callers may also feed the error straight
// into their diagnostics.
func Parse(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest YAML: %w", err)
	}
	return doc, nil
}

// Validate checks a manifest document against the schema and the semantic
// rules that can be decided without building a Mod. It never panics on a
// malformed document; any shape problem becomes a failing diagnostic.
func Validate(doc map[string]any, opts CheckOpts) (bool, []Diagnostic) {
	d := &diags{sink: opts.Sink}

	if doc == nil {
		d.errf("", "manifest document is empty or not a mapping")
		return false, d.list
	}

	checkSchema(d, "", doc, topLevelSchema)
	warnUnknownFields(d, doc)

	validateRequirements(d, doc, "prerequisites")
	validateRequirements(d, doc, "incompatible")
	validateOptionalContent(d, doc)
	validatePatcherOptions(d, "patcher_options", doc["patcher_options"])

	if opts.Root != "" || opts.ArchiveFiles != nil {
		validateFiles(d, doc, opts)
	}

	return !d.hasErrors(), d.list
}

// checkSchema validates one mapping against a field schema. prefix names
// the mapping in diagnostics ("" for the top level).
func checkSchema(d *diags, prefix string, doc map[string]any, schema map[string]fieldSpec) {
	for field, spec := range schema {
		val, present := doc[field]
		if !present {
			if spec.required {
				d.errf(join(prefix, field), "required field is missing")
			}
			continue
		}
		if !matchesAny(val, spec.kinds) {
			d.errf(join(prefix, field), "has wrong type %T", val)
			continue
		}
		if spec.hasRange {
			n, ok := asNumber(val)
			if !ok || n < spec.min || n > spec.max {
				d.errf(join(prefix, field), "value %v outside allowed range [%v, %v]", val, spec.min, spec.max)
			}
		}
	}
}

// warnUnknownFields flags top-level keys the schema does not know. They
// are ignored by the loader, so this stays a warning rather than an
// error.
func warnUnknownFields(d *diags, doc map[string]any) {
	var unknown []string
	for key := range doc {
		if _, known := topLevelSchema[key]; !known {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		d.warnf(key, "unknown field is ignored")
	}
}

func join(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func matchesAny(val any, kinds []kind) bool {
	for _, k := range kinds {
		if matches(val, k) {
			return true
		}
	}
	return false
}

func matches(val any, k kind) bool {
	switch k {
	case kindString:
		_, ok := val.(string)
		return ok
	case kindBool:
		_, ok := val.(bool)
		return ok
	case kindNumber:
		_, ok := asNumber(val)
		return ok
	case kindStringList:
		return isStringList(val)
	case kindMapList:
		list, ok := val.([]any)
		if !ok {
			return false
		}
		for _, el := range list {
			if _, ok := toMap(el); !ok {
				return false
			}
		}
		return true
	case kindMap:
		_, ok := toMap(val)
		return ok
	case kindStringOrList:
		if _, ok := val.(string); ok {
			return true
		}
		return isStringList(val)
	case kindBoolish:
		if _, ok := val.(bool); ok {
			return true
		}
		s, ok := val.(string)
		if !ok {
			return false
		}
		switch strings.ToLower(s) {
		case "true", "false", "yes", "no":
			return true
		}
		return false
	}
	return false
}

func isStringList(val any) bool {
	list, ok := val.([]any)
	if !ok {
		return false
	}
	for _, el := range list {
		if _, ok := el.(string); !ok {
			return false
		}
	}
	return true
}

func asNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// toMap normalizes the two mapping shapes yaml.v3 can produce.
func toMap(val any) (map[string]any, bool) {
	switch m := val.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	return nil, false
}

// NameList normalizes a requirement's name field, which may be a single
// string or a list of candidate names.
func NameList(val any) []string {
	switch v := val.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func validateRequirements(d *diags, doc map[string]any, field string) {
	val, present := doc[field]
	if !present {
		return
	}
	list, ok := val.([]any)
	if !ok {
		return // shape already reported by checkSchema
	}
	for i, el := range list {
		entry, ok := toMap(el)
		if !ok {
			d.errf(fmt.Sprintf("%s[%d]", field, i), "entry is not a mapping")
			continue
		}
		prefix := fmt.Sprintf("%s[%d]", field, i)
		checkSchema(d, prefix, entry, requirementSchema)

		names := NameList(entry["name"])
		if len(names) == 0 {
			d.errf(prefix+".name", "requirement needs at least one mod name")
			continue
		}
		// community_patch is the floor every modded game stands on; it can
		// neither carry options in a prerequisite nor be declared an enemy.
		for _, n := range names {
			if n != "community_patch" {
				continue
			}
			if field == "incompatible" {
				d.errf(prefix, "community_patch cannot be listed as incompatible")
			} else if _, hasOpts := entry["optional_content"]; hasOpts {
				d.errf(prefix, "community_patch prerequisite cannot specify optional_content")
			}
		}
	}
}

func validateOptionalContent(d *diags, doc map[string]any) {
	val, present := doc["optional_content"]
	if !present {
		return
	}
	list, ok := val.([]any)
	if !ok {
		return
	}
	for i, el := range list {
		entry, ok := toMap(el)
		if !ok {
			d.errf(fmt.Sprintf("optional_content[%d]", i), "entry is not a mapping")
			continue
		}
		prefix := fmt.Sprintf("optional_content[%d]", i)
		checkSchema(d, prefix, entry, optionalContentSchema)

		name, _ := entry["name"].(string)
		if reservedOptionNames[name] {
			d.errf(prefix+".name", "%q is a reserved name", name)
		}

		validatePatcherOptions(d, prefix+".patcher_options", entry["patcher_options"])

		settings, hasSettings := entry["install_settings"]
		if !hasSettings {
			continue
		}
		setList, ok := settings.([]any)
		if !ok {
			continue
		}
		if len(setList) < 2 {
			d.errf(prefix+".install_settings", "needs at least 2 settings, got %d", len(setList))
		}
		seen := map[string]bool{}
		for j, s := range setList {
			sm, ok := toMap(s)
			if !ok {
				d.errf(fmt.Sprintf("%s.install_settings[%d]", prefix, j), "entry is not a mapping")
				continue
			}
			checkSchema(d, fmt.Sprintf("%s.install_settings[%d]", prefix, j), sm, installSettingSchema)
			sname, _ := sm["name"].(string)
			if seen[sname] {
				d.errf(prefix+".install_settings", "duplicate setting name %q", sname)
			}
			seen[sname] = true
		}
	}

	if shots, ok := doc["screenshots"].([]any); ok {
		for i, el := range shots {
			if sm, ok := toMap(el); ok {
				checkSchema(d, fmt.Sprintf("screenshots[%d]", i), sm, screenshotSchema)
			}
		}
	}
}

func validatePatcherOptions(d *diags, prefix string, val any) {
	if val == nil {
		return
	}
	m, ok := toMap(val)
	if !ok {
		return
	}
	for key := range m {
		if _, known := patcherOptionsSchema[key]; !known {
			d.errf(join(prefix, key), "unknown patcher option")
		}
	}
	checkSchema(d, prefix, m, patcherOptionsSchema)
}

// validateFiles checks that the content directories a manifest promises
// actually exist. A failed base check short-circuits the per-option checks
// so one missing data/ does not cascade into a page of noise.
func validateFiles(d *diags, doc map[string]any, opts CheckOpts) {
	exists := func(rel string) bool {
		if opts.ArchiveFiles != nil {
			rel = filepath.ToSlash(rel)
			for _, f := range opts.ArchiveFiles {
				if f == rel || strings.HasPrefix(filepath.ToSlash(f), rel+"/") {
					return true
				}
			}
			return false
		}
		st, err := os.Stat(filepath.Join(opts.Root, rel))
		return err == nil && st.IsDir()
	}

	noBase := boolish(doc["no_base_content"])
	if !noBase && !exists("data") {
		d.errf("data", "base content directory is missing")
		return
	}

	list, _ := doc["optional_content"].([]any)
	for _, el := range list {
		entry, ok := toMap(el)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		if !exists(name) {
			d.errf(name, "optional content directory is missing")
			continue
		}
		if setList, ok := entry["install_settings"].([]any); ok {
			for _, s := range setList {
				sm, ok := toMap(s)
				if !ok {
					continue
				}
				sname, _ := sm["name"].(string)
				if sname != "" && !exists(filepath.Join(name, sname, "data")) {
					d.errf(name+"/"+sname, "install setting content directory is missing")
				}
			}
		} else if !exists(filepath.Join(name, "data")) {
			d.errf(name+"/data", "optional content data directory is missing")
		}
	}
}

func boolish(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes":
			return true
		}
	}
	return false
}

// Boolish exposes the manifest bool coercion for the model package.
func Boolish(val any) bool { return boolish(val) }

// ToMap exposes the mapping normalization for the model package.
func ToMap(val any) (map[string]any, bool) { return toMap(val) }
