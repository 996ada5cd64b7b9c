package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v2"
)

// fileDefinition is the on-disk shape of a metric override.
//
//	metrics:
//	  - name: Total Revenue
//	    statement: income
//	    aliases: [Total Revenue, Revenues]
//	    derivation:
//	      operator: add
//	      operands: [Product Revenue, Service Revenue]
type fileDefinition struct {
	Name       string          `yaml:"name" json:"name"`
	Statement  string          `yaml:"statement" json:"statement"`
	Aliases    []string        `yaml:"aliases" json:"aliases"`
	Derivation *fileDerivation `yaml:"derivation" json:"derivation"`
}

type fileDerivation struct {
	Operator string   `yaml:"operator" json:"operator"`
	Operands []string `yaml:"operands" json:"operands"`
}

type fileCatalog struct {
	Metrics []fileDefinition `yaml:"metrics" json:"metrics"`
}

// LoadFile reads metric definitions from a YAML (.yaml, .yml) or Hjson/JSON
// (.hjson, .json) file. The result is meant to be passed to Merge.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var fc fileCatalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
		}
	case ".hjson", ".json":
		if err := hjson.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog hjson: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog file extension %q", filepath.Ext(path))
	}
	return fc.definitions()
}

func (fc fileCatalog) definitions() ([]Definition, error) {
	defs := make([]Definition, 0, len(fc.Metrics))
	for _, m := range fc.Metrics {
		st, err := ParseStatement(m.Statement)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		d := Definition{Name: m.Name, Statement: st, Aliases: m.Aliases}
		if m.Derivation != nil {
			op, err := ParseOperator(m.Derivation.Operator)
			if err != nil {
				return nil, fmt.Errorf("metric %q: %w", m.Name, err)
			}
			d.Derivation = &Derivation{Operator: op, Operands: m.Derivation.Operands}
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// FromFile merges the definitions in path over the default catalog.
// An empty path returns the default catalog.
func FromFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	overrides, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Merge(Default(), overrides...)
}
