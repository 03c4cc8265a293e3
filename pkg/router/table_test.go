package router

import (
	"strings"
	"testing"
)

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantErr string
	}{
		{
			name:    "empty path",
			defs:    []Definition{{Path: "", Component: "x"}},
			wantErr: "empty path",
		},
		{
			name:    "empty component",
			defs:    []Definition{{Path: "/", Component: ""}},
			wantErr: "empty component",
		},
		{
			name:    "duplicate path",
			defs:    []Definition{{Path: "/a", Component: "a"}, {Path: "/a", Component: "b"}},
			wantErr: "duplicate path",
		},
		{
			name:    "wildcard not last",
			defs:    []Definition{{Path: "*", Component: "nf"}, {Path: "/a", Component: "a"}},
			wantErr: "must be last",
		},
		{
			name:    "two wildcards",
			defs:    []Definition{{Path: "*", Component: "nf"}, {Path: "*", Component: "nf2"}},
			wantErr: "must be last",
		},
		{
			name:    "relative path",
			defs:    []Definition{{Path: "urls", Component: "u"}},
			wantErr: "must start with",
		},
		{
			name:    "unnamed parameter",
			defs:    []Definition{{Path: "/urls/:", Component: "u"}},
			wantErr: "unnamed parameter",
		},
		{
			name:    "duplicate parameter",
			defs:    []Definition{{Path: "/a/:id/b/:id", Component: "u"}},
			wantErr: "duplicate parameter",
		},
		{
			name:    "embedded wildcard",
			defs:    []Definition{{Path: "/files/*", Component: "f"}},
			wantErr: "wildcard is only valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.defs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestMustTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustTable should panic on an invalid table")
		}
	}()
	MustTable([]Definition{{Path: "", Component: "x"}})
}

func TestTableRoutesIsACopy(t *testing.T) {
	tbl := MustTable([]Definition{
		{Path: "/", Component: "home", Meta: map[string]string{"k": "v"}},
		{Path: "*", Component: "nf"},
	})

	routes := tbl.Routes()
	routes[0].Meta["k"] = "changed"
	routes[0].Path = "/x"

	def, ok := tbl.Lookup("/")
	if !ok {
		t.Fatal("Lookup(/) should find the home route")
	}
	if def.MetaValue("k") != "v" {
		t.Errorf("table meta was mutated through Routes()")
	}
	if !tbl.HasWildcard() {
		t.Error("HasWildcard() = false, want true")
	}
}
