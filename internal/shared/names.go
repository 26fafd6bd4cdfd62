package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// NameKey canonicalises a name for case-insensitive uniqueness comparison.
// Unicode case folding is used rather than ToUpper so names like "straße"
// and "STRASSE" collide the way the database citext columns treat them.
// A Caser carries internal state, so one is built per call.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// AllNamesDifferent reports whether every name in the slice is unique under
// case-insensitive comparison.
func AllNamesDifferent(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := NameKey(name)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}
