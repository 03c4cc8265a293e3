package router

import (
	"fmt"
	"strings"
)

// Table is an ordered, immutable list of route definitions.
type Table struct {
	routes   []Definition
	wildcard *Definition
}

// NewTable validates defs and builds a table from them.
//
// Paths must be unique, start with "/" (except the wildcard), and name
// every parameter segment. At most one wildcard is allowed and it must
// come last.
func NewTable(defs []Definition) (*Table, error) {
	t := &Table{routes: make([]Definition, 0, len(defs))}
	seen := make(map[string]struct{}, len(defs))

	for i, def := range defs {
		if def.Path == "" {
			return nil, fmt.Errorf("router: route %d: empty path", i)
		}
		if def.Component == "" {
			return nil, fmt.Errorf("router: route %q: empty component", def.Path)
		}
		if _, dup := seen[def.Path]; dup {
			return nil, fmt.Errorf("router: route %q: duplicate path", def.Path)
		}
		seen[def.Path] = struct{}{}

		if def.IsWildcard() {
			if i != len(defs)-1 {
				return nil, fmt.Errorf("router: wildcard route must be last, found at position %d", i)
			}
		} else if err := validatePattern(def.Path); err != nil {
			return nil, err
		}

		def.Meta = cloneMeta(def.Meta)
		t.routes = append(t.routes, def)
	}

	if n := len(t.routes); n > 0 && t.routes[n-1].IsWildcard() {
		t.wildcard = &t.routes[n-1]
	}
	return t, nil
}

// MustTable is like NewTable but panics on an invalid table.
// Use it for tables declared at package level.
func MustTable(defs []Definition) *Table {
	t, err := NewTable(defs)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns a copy of the definitions in table order.
func (t *Table) Routes() []Definition {
	out := make([]Definition, len(t.routes))
	for i, def := range t.routes {
		def.Meta = cloneMeta(def.Meta)
		out[i] = def
	}
	return out
}

// Lookup returns the definition registered for an exact pattern.
func (t *Table) Lookup(pattern string) (Definition, bool) {
	for _, def := range t.routes {
		if def.Path == pattern {
			return def, true
		}
	}
	return Definition{}, false
}

// HasWildcard reports whether the table has a catch-all route.
func (t *Table) HasWildcard() bool {
	return t.wildcard != nil
}

func validatePattern(pattern string) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("router: route %q: path must start with \"/\"", pattern)
	}
	names := make(map[string]struct{})
	for _, seg := range strings.Split(pattern, "/") {
		switch {
		case seg == WildcardPath:
			return fmt.Errorf("router: route %q: wildcard is only valid as a whole path", pattern)
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				return fmt.Errorf("router: route %q: unnamed parameter", pattern)
			}
			if _, dup := names[name]; dup {
				return fmt.Errorf("router: route %q: duplicate parameter %q", pattern, name)
			}
			names[name] = struct{}{}
		}
	}
	return nil
}

func cloneMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
