// Package catalog holds the static table of standardized metrics: which
// statement each metric lives on, the vendor aliases tried in precedence
// order, and an optional arithmetic derivation from other metrics.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Statement identifies the financial statement a metric is read from.
type Statement int

const (
	Income Statement = iota + 1
	Balance
)

func (s Statement) String() string {
	switch s {
	case Income:
		return "income"
	case Balance:
		return "balance"
	}
	return fmt.Sprintf("statement(%d)", int(s))
}

// ParseStatement accepts "income" or "balance" (case-insensitive).
func ParseStatement(s string) (Statement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "balance":
		return Balance, nil
	}
	return 0, fmt.Errorf("unknown statement %q", s)
}

// Operator combines the operand series of a derivation.
type Operator int

const (
	Add Operator = iota + 1
	Subtract
)

func (o Operator) String() string {
	switch o {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	}
	return fmt.Sprintf("operator(%d)", int(o))
}

// ParseOperator accepts "add" or "subtract" (case-insensitive).
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add":
		return Add, nil
	case "subtract":
		return Subtract, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Derivation expresses a metric in terms of other metrics.
// Add sums all operands; Subtract is operands[0] minus the sum of the rest.
type Derivation struct {
	Operator Operator
	Operands []string
}

// Definition describes one standardized metric.
type Definition struct {
	Name       string
	Statement  Statement
	Aliases    []string
	Derivation *Derivation
}

func (d Definition) clone() Definition {
	out := Definition{
		Name:      d.Name,
		Statement: d.Statement,
		Aliases:   append([]string(nil), d.Aliases...),
	}
	if d.Derivation != nil {
		out.Derivation = &Derivation{
			Operator: d.Derivation.Operator,
			Operands: append([]string(nil), d.Derivation.Operands...),
		}
	}
	return out
}

// Catalog is an immutable set of metric definitions keyed by name.
// It is built once at startup and shared read-only.
type Catalog struct {
	defs  map[string]Definition
	names []string
}

// New validates the definitions and builds a catalog. Structural problems
// (duplicate names, operands naming no definition, metrics with neither
// aliases nor derivation) are programmer errors and are reported here so the
// process can fail fast.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("catalog: metric with empty name")
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate metric %q", d.Name)
		}
		if d.Statement != Income && d.Statement != Balance {
			return nil, fmt.Errorf("catalog: metric %q has no statement", d.Name)
		}
		if len(d.Aliases) == 0 && d.Derivation == nil {
			return nil, fmt.Errorf("catalog: metric %q has neither aliases nor derivation", d.Name)
		}
		if d.Derivation != nil {
			if d.Derivation.Operator != Add && d.Derivation.Operator != Subtract {
				return nil, fmt.Errorf("catalog: metric %q has invalid operator", d.Name)
			}
			if len(d.Derivation.Operands) == 0 {
				return nil, fmt.Errorf("catalog: metric %q derivation has no operands", d.Name)
			}
		}
		c.defs[d.Name] = d.clone()
		c.names = append(c.names, d.Name)
	}
	for _, d := range c.defs {
		if d.Derivation == nil {
			continue
		}
		for _, op := range d.Derivation.Operands {
			if _, ok := c.defs[op]; !ok {
				return nil, fmt.Errorf("catalog: metric %q derives from undefined metric %q", d.Name, op)
			}
		}
	}
	sort.Strings(c.names)
	return c, nil
}

// MustNew is New for package-level catalogs known to be valid.
func MustNew(defs ...Definition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns a copy of the named definition.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	if !ok {
		return Definition{}, false
	}
	return d.clone(), true
}

// Names returns the metric names in sorted order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of metrics.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns copies of every definition, sorted by name.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.defs[n].clone())
	}
	return out
}

// Merge returns a new catalog where each override replaces the base
// definition of the same name (or is added if new). The base is untouched.
func Merge(base *Catalog, overrides ...Definition) (*Catalog, error) {
	byName := make(map[string]Definition, base.Len()+len(overrides))
	for _, d := range base.defs {
		byName[d.Name] = d
	}
	for _, d := range overrides {
		byName[d.Name] = d
	}
	defs := make([]Definition, 0, len(byName))
	for _, d := range byName {
		defs = append(defs, d)
	}
	return New(defs...)
}

// Cycle returns one derivation cycle (as a path of metric names ending at
// its start) if the catalog contains any. Cycles are allowed at
// construction; the resolver guards against them at resolution time.
func (c *Catalog) Cycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(c.defs))
	var stack []string
	var found []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = grey
		stack = append(stack, name)
		if d := c.defs[name]; d.Derivation != nil {
			for _, op := range d.Derivation.Operands {
				switch color[op] {
				case grey:
					for i, n := range stack {
						if n == op {
							found = append(append([]string(nil), stack[i:]...), op)
							return true
						}
					}
				case white:
					if visit(op) {
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return false
	}

	for _, n := range c.names {
		if color[n] == white && visit(n) {
			return found
		}
	}
	return nil
}
