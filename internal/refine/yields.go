package refine

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var yieldFS embed.FS

// Source is one raw ore in a yield table.
type Source struct {
	Name   string    `yaml:"name"`
	TypeID int32     `yaml:"type_id"`
	Yields []float64 `yaml:"yields"` // per-unit mineral yield, in Minerals order
}

// YieldTable maps raw source ores to per-unit mineral yields.
// Variants are loaded by name from embedded data files.
type YieldTable struct {
	Name     string   `yaml:"-"`
	Minerals []string `yaml:"minerals"`
	Sources  []Source `yaml:"sources"`
}

// LoadYieldTable loads a named yield-table variant ("all", "nullsec").
func LoadYieldTable(name string) (*YieldTable, error) {
	raw, err := yieldFS.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown yield table %q (have %v)", name, Variants())
	}
	var t YieldTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("yield table %s: %w", name, err)
	}
	t.Name = name
	for _, s := range t.Sources {
		if len(s.Yields) != len(t.Minerals) {
			return nil, fmt.Errorf("yield table %s: source %s has %d yields, want %d",
				name, s.Name, len(s.Yields), len(t.Minerals))
		}
	}
	return &t, nil
}

// Variants lists the embedded yield-table names.
func Variants() []string {
	entries, err := yieldFS.ReadDir("data")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if len(n) > 5 && n[len(n)-5:] == ".yaml" {
			names = append(names, n[:len(n)-5])
		}
	}
	sort.Strings(names)
	return names
}

// SourceNames returns the source ore names in table order.
func (t *YieldTable) SourceNames() []string {
	names := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		names[i] = s.Name
	}
	return names
}
