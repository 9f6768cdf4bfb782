package manifest

// kind enumerates the value shapes the schema can require.
type kind int

const (
	kindString kind = iota
	kindBool
	kindNumber
	kindStringList
	kindMapList
	kindMap
	// kindStringOrList accepts a plain string or a list of strings.
	kindStringOrList
	// kindBoolish accepts a bool or a bool-looking string ("true"/"yes").
	kindBoolish
)

// fieldSpec describes one schema field: the shapes it may take, whether it
// must be present, and an optional numeric range.
type fieldSpec struct {
	kinds    []kind
	required bool
	hasRange bool
	min, max float64
}

func req(k ...kind) fieldSpec { return fieldSpec{kinds: k, required: true} }
func opt(k ...kind) fieldSpec { return fieldSpec{kinds: k} }

func ranged(k kind, min, max float64) fieldSpec {
	return fieldSpec{kinds: []kind{k}, hasRange: true, min: min, max: max}
}

// topLevelSchema is the schema of manifest.yaml itself.
var topLevelSchema = map[string]fieldSpec{
	"name":                        req(kindString),
	"display_name":                req(kindString),
	"version":                     req(kindString, kindNumber),
	"build":                       req(kindString, kindNumber),
	"description":                 req(kindString),
	"authors":                     req(kindString),
	"patcher_version_requirement": req(kindStringOrList, kindNumber),
	"prerequisites":               req(kindMapList),

	"installment":               opt(kindString),
	"language":                  opt(kindString),
	"incompatible":              opt(kindMapList),
	"compatible_patch_versions": opt(kindBoolish),
	"compatible_minor_versions": opt(kindBoolish),
	"safe_reinstall_options":    opt(kindBoolish),
	"release_date":              opt(kindString),
	"trailer_url":               opt(kindString),
	"translations":              opt(kindStringList),
	"link":                      opt(kindString),
	"tags":                      opt(kindStringList),
	"logo":                      opt(kindString),
	"install_banner":            opt(kindString),
	"screenshots":               opt(kindMapList),
	"change_log":                opt(kindString),
	"other_info":                opt(kindString),
	"patcher_options":           opt(kindMap),
	"config_options":            opt(kindMap),
	"optional_content":          opt(kindMapList),
	"strict_requirements":       opt(kindBoolish),
	"no_base_content":           opt(kindBoolish),
}

// requirementSchema covers entries of prerequisites and incompatible.
var requirementSchema = map[string]fieldSpec{
	"name":             req(kindStringOrList),
	"versions":         opt(kindStringList),
	"optional_content": opt(kindStringList),
}

// optionalContentSchema covers entries of optional_content.
var optionalContentSchema = map[string]fieldSpec{
	"name":             req(kindString),
	"display_name":     req(kindString),
	"description":      opt(kindString),
	"default_option":   opt(kindString),
	"forced_option":    opt(kindBoolish),
	"install_settings": opt(kindMapList),
	"patcher_options":  opt(kindMap),
}

// installSettingSchema covers entries of an option's install_settings.
var installSettingSchema = map[string]fieldSpec{
	"name":        req(kindString),
	"description": opt(kindString),
}

// screenshotSchema covers entries of screenshots.
var screenshotSchema = map[string]fieldSpec{
	"img":     req(kindString),
	"text":    opt(kindString),
	"compare": opt(kindString),
}

// patcherOptionsSchema is closed: unknown keys are rejected.
var patcherOptionsSchema = map[string]fieldSpec{
	"gravity":                    ranged(kindNumber, -100.0, -1.0),
	"skins_in_shop":              ranged(kindNumber, 8, 32),
	"blast_damage_friendly_fire": opt(kindBoolish),
	"game_font":                  opt(kindString),
}

// reservedOptionNames may not be used as optional-content names; they
// collide with keys of the installation record.
var reservedOptionNames = map[string]bool{
	"base":         true,
	"display_name": true,
	"build":        true,
	"version":      true,
	"language":     true,
	"installment":  true,
}
