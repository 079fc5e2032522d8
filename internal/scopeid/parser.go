// internal/scopeid/parser.go
package scopeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// indexRegex matches the fragment suffix of a key, e.g. `#12`.
var indexRegex = regexp.MustCompile(`#(\d+)$`)

// Parse creates a Key by parsing its canonical string representation.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("scope key cannot be empty")
	}

	matches := indexRegex.FindStringSubmatchIndex(raw)
	if matches == nil {
		if strings.Contains(raw, "#") {
			return Key{}, fmt.Errorf("invalid fragment suffix in scope key: %q", raw)
		}
		return Root(raw), nil
	}

	page := raw[:matches[0]]
	if page == "" {
		return Key{}, fmt.Errorf("scope key has an empty page: %q", raw)
	}
	if strings.Contains(page, "#") {
		return Key{}, fmt.Errorf("page identity must not contain '#': %q", raw)
	}
	index, err := strconv.Atoi(raw[matches[2]:matches[3]])
	if err != nil {
		// Unreachable due to regex `\d+`
		return Key{}, fmt.Errorf("internal error parsing index: %w", err)
	}
	return Fragment(page, index), nil
}
