package router

import (
	"net/url"
	"strings"
)

// Match resolves a concrete location against the table.
//
// Exact patterns are tried first in table order, then parameterized
// patterns in table order, then the wildcard. Trailing slashes are
// significant: "/urls" and "/urls/" are different paths, and a parameter
// segment never matches an empty string.
func (t *Table) Match(location string) (*ResolvedRoute, bool) {
	path, rawQuery := splitLocation(location)

	for _, def := range t.routes {
		if def.IsWildcard() || def.IsParameterized() {
			continue
		}
		if def.Path == path {
			return t.resolved(def, path, rawQuery, nil), true
		}
	}

	segments := strings.Split(path, "/")
	for _, def := range t.routes {
		if def.IsWildcard() || !def.IsParameterized() {
			continue
		}
		if params, ok := matchPattern(def.Path, segments); ok {
			return t.resolved(def, path, rawQuery, params), true
		}
	}

	if t.wildcard != nil {
		return t.resolved(*t.wildcard, path, rawQuery, nil), true
	}
	return nil, false
}

// matchPattern matches pre-split path segments against a pattern with
// ":name" segments and returns the extracted parameters.
func matchPattern(pattern string, segments []string) (Params, bool) {
	parts := strings.Split(pattern, "/")
	if len(parts) != len(segments) {
		return nil, false
	}

	params := make(Params)
	for i, part := range parts {
		seg := segments[i]
		if strings.HasPrefix(part, ":") {
			if seg == "" {
				return nil, false
			}
			params[part[1:]] = seg
			continue
		}
		if part != seg {
			return nil, false
		}
	}
	return params, true
}

func (t *Table) resolved(def Definition, path, rawQuery string, params Params) *ResolvedRoute {
	if params == nil {
		params = make(Params)
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	def.Meta = cloneMeta(def.Meta)
	return &ResolvedRoute{
		Definition: def,
		Path:       path,
		Params:     params,
		Query:      query,
		rawQuery:   rawQuery,
	}
}
