package mods

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/commodctl/internal/manifest"
)

// InstallSetting is one choice of a multi-choice option.
type InstallSetting struct {
	Name        string
	Description string
}

// OptionalContent is a named sub-package of a mod: either a simple yes/skip
// toggle or a multi-choice selector with install settings.
type OptionalContent struct {
	Name        string
	DisplayName string
	Description string

	// DefaultOption is "skip", "install" (simple options only), or the name
	// of one of the install settings. Empty means no preselection.
	DefaultOption string
	// ForcedOption pins the option to installed; it excludes DefaultOption.
	ForcedOption bool

	InstallSettings []InstallSetting

	// PatcherOptions optionally overrides the mod-level patcher options
	// when this content is installed.
	PatcherOptions *PatcherOptions
}

// SettingByName finds an install setting, or nil.
func (o *OptionalContent) SettingByName(name string) *InstallSetting {
	for i := range o.InstallSettings {
		if o.InstallSettings[i].Name == name {
			return &o.InstallSettings[i]
		}
	}
	return nil
}

// ValidChoice reports whether value is an acceptable install decision for
// this option: "skip", "yes" for simple options, or a setting name.
func (o *OptionalContent) ValidChoice(value string) bool {
	if value == "skip" {
		return !o.ForcedOption
	}
	if len(o.InstallSettings) == 0 {
		return value == "yes"
	}
	return o.SettingByName(value) != nil
}

var reservedOptionNames = map[string]bool{
	"base": true, "display_name": true, "build": true,
	"version": true, "language": true, "installment": true,
}

func parseOptionalContent(val any) ([]OptionalContent, error) {
	if val == nil {
		return nil, nil
	}
	list, ok := val.([]any)
	if !ok {
		return nil, &ManifestError{Reason: "optional_content is not a sequence"}
	}
	out := make([]OptionalContent, 0, len(list))
	for _, el := range list {
		entry, ok := manifest.ToMap(el)
		if !ok {
			return nil, &ManifestError{Reason: "optional_content entry is not a mapping"}
		}
		var o OptionalContent
		o.Name, _ = entry["name"].(string)
		if o.Name == "" {
			return nil, &ManifestError{Reason: "optional content entry has no name"}
		}
		if reservedOptionNames[o.Name] {
			return nil, &ManifestError{Reason: fmt.Sprintf("optional content name %q is reserved", o.Name)}
		}
		// Option and setting names are joined into distribution paths.
		if strings.ContainsAny(o.Name, `/\`) {
			return nil, &ManifestError{Reason: fmt.Sprintf("optional content name %q contains path separators", o.Name)}
		}
		o.DisplayName, _ = entry["display_name"].(string)
		o.Description, _ = entry["description"].(string)
		o.ForcedOption = manifest.Boolish(entry["forced_option"])

		if setList, ok := entry["install_settings"].([]any); ok {
			if len(setList) < 2 {
				return nil, &ManifestError{Reason: fmt.Sprintf("option %q needs at least 2 install settings", o.Name)}
			}
			seen := map[string]bool{}
			for _, s := range setList {
				sm, ok := manifest.ToMap(s)
				if !ok {
					return nil, &ManifestError{Reason: fmt.Sprintf("option %q has a malformed install setting", o.Name)}
				}
				name, _ := sm["name"].(string)
				if name == "" || seen[name] {
					return nil, &ManifestError{Reason: fmt.Sprintf("option %q has missing or duplicate setting names", o.Name)}
				}
				if strings.ContainsAny(name, `/\`) {
					return nil, &ManifestError{Reason: fmt.Sprintf("option %q has setting name %q with path separators", o.Name, name)}
				}
				seen[name] = true
				desc, _ := sm["description"].(string)
				o.InstallSettings = append(o.InstallSettings, InstallSetting{Name: name, Description: desc})
			}
		}

		if def, ok := entry["default_option"].(string); ok && def != "" {
			if o.ForcedOption {
				return nil, &ManifestError{Reason: fmt.Sprintf("option %q cannot combine forced_option with default_option", o.Name)}
			}
			switch {
			case def == "skip":
			case def == "install" && len(o.InstallSettings) == 0:
			case o.SettingByName(def) != nil:
			default:
				return nil, &ManifestError{Reason: fmt.Sprintf("option %q has invalid default_option %q", o.Name, def)}
			}
			o.DefaultOption = def
		}

		if po, ok := manifest.ToMap(entry["patcher_options"]); ok {
			parsed := parsePatcherOptions(po)
			o.PatcherOptions = &parsed
		}

		out = append(out, o)
	}
	return out, nil
}
