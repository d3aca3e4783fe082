// Package strings holds list parsing helpers for configuration values.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value into trimmed, non-empty,
// first-seen-unique entries. Comparison is case-sensitive because Neo
// addresses are base58.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
