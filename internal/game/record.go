package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestRelPath is the installation manifest location inside a game copy.
const ManifestRelPath = "data/mod_manifest.yaml"

// Record is one entry of the installation manifest: what was installed for
// one mod and with which option decisions. String keys of the legacy
// on-disk format are mapped onto typed fields; per-option decisions stay a
// map because option names are mod-defined.
type Record struct {
	Base        string // "yes" or "skip"
	Version     string
	Build       string
	Language    string
	Installment string
	DisplayName string
	// Options maps option name to "yes", "skip" or an install-setting name.
	Options map[string]string
}

// reserved record keys, everything else in a record mapping is an option.
var recordKeys = map[string]bool{
	"base": true, "version": true, "build": true,
	"language": true, "installment": true, "display_name": true,
}

// Valid reports whether the record carries the two mandatory fields.
func (r Record) Valid() bool { return r.Base != "" && r.Version != "" }

// LoadManifest reads and types an installation manifest file. Records
// missing language or installment come from legacy installs and get the
// documented defaults.
func LoadManifest(path string) (map[string]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest decodes installation manifest bytes.
func ParseManifest(data []byte) (map[string]Record, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing installation manifest: %w", err)
	}
	out := make(map[string]Record, len(raw))
	for name, fields := range raw {
		r := Record{
			Language:    "not_specified",
			Installment: "exmachina",
			Options:     map[string]string{},
		}
		for k, v := range fields {
			s := fmt.Sprintf("%v", v)
			switch k {
			case "base":
				r.Base = s
			case "version":
				r.Version = s
			case "build":
				r.Build = s
			case "language":
				r.Language = s
			case "installment":
				r.Installment = s
			case "display_name":
				r.DisplayName = s
			default:
				r.Options[k] = s
			}
		}
		out[name] = r
	}
	return out, nil
}

// MarshalManifest renders records back to the flat on-disk mapping with a
// stable key order, so repeated saves of the same state are byte-identical.
func MarshalManifest(records map[string]Record) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	names := sortedKeys(records)
	for _, name := range names {
		r := records[name]
		entry := &yaml.Node{Kind: yaml.MappingNode}
		put := func(k, v string) {
			entry.Content = append(entry.Content,
				strNode(k), strNode(v))
		}
		put("base", r.Base)
		put("version", r.Version)
		if r.Build != "" {
			put("build", r.Build)
		}
		put("language", r.Language)
		put("installment", r.Installment)
		if r.DisplayName != "" {
			put("display_name", r.DisplayName)
		}
		for _, opt := range sortedKeys(r.Options) {
			put(opt, r.Options[opt])
		}
		root.Content = append(root.Content, strNode(name), entry)
	}
	return yaml.Marshal(root)
}

// SaveManifest writes the installation manifest atomically: temp file in
// the same directory, then rename.
func SaveManifest(gameRoot string, records map[string]Record) error {
	data, err := MarshalManifest(records)
	if err != nil {
		return err
	}
	dest := filepath.Join(gameRoot, filepath.FromSlash(ManifestRelPath))
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing installation manifest: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing installation manifest: %w", err)
	}
	return nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
