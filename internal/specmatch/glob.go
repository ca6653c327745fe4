package specmatch

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold is the case-insensitive comparison key used throughout matching
// (spec.md §4.1 "case-insensitively"). golang.org/x/text/cases gives a
// full Unicode case fold instead of a naive strings.ToLower, matching the way
// sunholo-data-ailang's lexer normalizes identifiers for comparison.
var foldCase = cases.Fold()

func foldKey(s string) string {
	return foldCase.String(s)
}

// globMatch reports whether name matches pattern, where pattern may use
// `*` (any run of characters), `?` (exactly one character), and `|`
// alternation at the top level (spec.md §4.2). Comparison is
// case-insensitive.
func globMatch(pattern, name string) bool {
	for _, alt := range strings.Split(pattern, "|") {
		if globMatchOne(foldKey(alt), foldKey(name)) {
			return true
		}
	}
	return false
}

// globMatchOne implements classic */? glob matching over already
// case-folded strings via straightforward recursive backtracking; probe
// spec segments are short identifiers, so this never approaches a
// pathological input size.
func globMatchOne(pattern, name string) bool {
	return matchHere(pattern, name)
}

func matchHere(pattern, name string) bool {
	if pattern == "" {
		return name == ""
	}
	switch pattern[0] {
	case '*':
		// try consuming 0..len(name) characters for the star
		for i := 0; i <= len(name); i++ {
			if matchHere(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '?':
		if name == "" {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	default:
		if name == "" || pattern[0] != name[0] {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	}
}
