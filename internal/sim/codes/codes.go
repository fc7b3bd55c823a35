// Package codes matches item/block codes against authoring patterns.
//
// A pattern is either an exact code ("ingot-copper") or contains a single '*'
// that stands for any run of characters ("ingot-*", "*-ore-poor"). The text the
// star consumed is the pattern's variant.
package codes

import "strings"

const Wildcard = "*"

func IsWildcard(pattern string) bool {
	return strings.Contains(pattern, Wildcard)
}

// Capture reports whether code matches pattern and returns the variant bound to
// the wildcard. Exact patterns capture "".
func Capture(pattern, code string) (string, bool) {
	i := strings.Index(pattern, Wildcard)
	if i < 0 {
		return "", pattern == code
	}
	prefix := pattern[:i]
	suffix := pattern[i+1:]
	// Anything after a second star is matched literally as part of the suffix
	// only when it is itself a trailing wildcard.
	if strings.HasSuffix(suffix, Wildcard) {
		suffix = strings.TrimSuffix(suffix, Wildcard)
		if !strings.HasPrefix(code, prefix) {
			return "", false
		}
		rest := code[len(prefix):]
		j := strings.Index(rest, suffix)
		if j < 0 {
			return "", false
		}
		return rest[:j], true
	}
	if len(code) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(code, prefix) || !strings.HasSuffix(code, suffix) {
		return "", false
	}
	return code[len(prefix) : len(code)-len(suffix)], true
}

// Match reports whether code matches pattern and, when variants is non-empty,
// whether the captured variant is one of them.
func Match(pattern, code string, variants []string) bool {
	v, ok := Capture(pattern, code)
	if !ok {
		return false
	}
	if len(variants) == 0 || !IsWildcard(pattern) {
		return true
	}
	for _, allowed := range variants {
		if allowed == v {
			return true
		}
	}
	return false
}

// MatchPrefix is the filter form: an exact code, or a prefix ending in '*'.
func MatchPrefix(pattern, code string) bool {
	if strings.HasSuffix(pattern, Wildcard) {
		return strings.HasPrefix(code, strings.TrimSuffix(pattern, Wildcard))
	}
	return pattern == code
}
