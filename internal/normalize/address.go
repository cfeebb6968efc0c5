// Package normalize holds the post-processing applied to decoded address
// fields.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Func cleans a single decoded field value.
type Func func(field string) string

const (
	// ModeTrim strips leading and trailing whitespace only.
	ModeTrim = "trim"
	// ModeCollapse also folds internal whitespace runs into one space.
	ModeCollapse = "collapse"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Trim removes leading and trailing whitespace. Internal separators that the
// model labelled as part of a field are kept as they are.
func Trim(field string) string {
	return strings.TrimSpace(field)
}

// CollapseSpace trims the field and replaces each internal whitespace run
// (including newlines and tabs) with a single space.
func CollapseSpace(field string) string {
	return reSpaces.ReplaceAllString(strings.TrimSpace(field), " ")
}

// ByName returns the normaliser for a configured mode. An empty mode selects
// ModeTrim.
func ByName(mode string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeTrim:
		return Trim, nil
	case ModeCollapse:
		return CollapseSpace, nil
	default:
		return nil, fmt.Errorf("unknown normalize mode %q", mode)
	}
}
