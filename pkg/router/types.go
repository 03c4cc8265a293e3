package router

import (
	"net/url"
	"strings"
)

// WildcardPath is the catch-all pattern. It matches any path that no other
// route matches and must be the last entry of a table.
const WildcardPath = "*"

// Definition describes one route of the static route table.
type Definition struct {
	// Path is the URL pattern: literal segments, ":name" parameter segments,
	// or the literal WildcardPath.
	Path string

	// Component is the identifier of the component mounted for this route.
	Component string

	// RequiresAuth marks routes that need an authenticated session.
	RequiresAuth bool

	// Title is the page title. Empty leaves the document title unchanged.
	Title string

	// Meta carries free-form route flags (for example "guestOnly").
	Meta map[string]string
}

// IsWildcard reports whether d is the catch-all route.
func (d Definition) IsWildcard() bool {
	return d.Path == WildcardPath
}

// IsParameterized reports whether the pattern contains ":name" segments.
func (d Definition) IsParameterized() bool {
	for _, seg := range strings.Split(d.Path, "/") {
		if strings.HasPrefix(seg, ":") {
			return true
		}
	}
	return false
}

// MetaValue returns the meta value for key, or "" when unset.
func (d Definition) MetaValue(key string) string {
	if d.Meta == nil {
		return ""
	}
	return d.Meta[key]
}

// MetaFlag reports whether the meta value for key is "true".
func (d Definition) MetaFlag(key string) bool {
	return d.MetaValue(key) == "true"
}

// ResolvedRoute is a route definition matched against a concrete location.
// It is created per navigation attempt.
type ResolvedRoute struct {
	Definition Definition

	// Path is the concrete path that was matched (without query or fragment).
	Path string

	// Params are the values of the ":name" segments.
	Params Params

	// Query is the parsed query string of the location.
	Query url.Values

	// rawQuery keeps the original encoding for URL().
	rawQuery string
}

// URL returns the location of the resolved route including its query string.
func (r *ResolvedRoute) URL() string {
	if r == nil {
		return ""
	}
	if r.rawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.rawQuery
}

// splitLocation separates path, raw query and fragment.
func splitLocation(location string) (path, rawQuery string) {
	if i := strings.IndexByte(location, '#'); i >= 0 {
		location = location[:i]
	}
	path, rawQuery, _ = strings.Cut(location, "?")
	return path, rawQuery
}
