// Package routepath validates locations reported by clients before they
// reach a router.
package routepath

import (
	"errors"
	"strings"
)

// Location validation errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrDotSegment           = errors.New("path contains dot segment")
	ErrControlCharacter     = errors.New("path contains control character")
)

// MaxLocationLength bounds the accepted location size.
const MaxLocationLength = 2048

// ValidateLocation checks that loc is a same-origin location: a path
// starting with "/", optionally followed by a query and a fragment.
// The location is returned unchanged, since trailing slashes and empty
// segments are significant to route matching.
//
// Rejected:
//   - Absolute and protocol-relative URLs ("https://x", "//x")
//   - Backslashes, NUL bytes (literal or %00) and other control characters
//   - Invalid percent-escapes (e.g., %GG, %2)
//   - "." and ".." segments
func ValidateLocation(loc string) (string, error) {
	if loc == "" || len(loc) > MaxLocationLength {
		return "", ErrInvalidPath
	}
	if !strings.HasPrefix(loc, "/") || strings.HasPrefix(loc, "//") {
		return "", ErrInvalidPath
	}

	path, _ := SplitPathAndQuery(loc)

	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(loc, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	for i := 0; i < len(loc); i++ {
		if loc[i] < 0x20 || loc[i] == 0x7f {
			return "", ErrControlCharacter
		}
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "." || seg == ".." {
			return "", ErrDotSegment
		}
	}
	return loc, nil
}

// SplitPathAndQuery splits a location into its path and everything after
// it (query and fragment), without the separator.
func SplitPathAndQuery(loc string) (path, rest string) {
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		return loc[:i], loc[i+1:]
	}
	return loc, ""
}

// validatePercentEscapes checks that all percent-escapes are valid.
// Valid escapes are %XX where X is a hex digit (0-9, a-f, A-F).
func validatePercentEscapes(path string) error {
	i := 0
	for i < len(path) {
		if path[i] == '%' {
			if i+2 >= len(path) {
				return ErrInvalidPercentEscape
			}
			if !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
				return ErrInvalidPercentEscape
			}
			i += 3
		} else {
			i++
		}
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
