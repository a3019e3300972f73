package catalog

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Everything is the wildcard expression that matches every name.
const Everything = "..."

// NameMatcher matches dataset type names against a set of patterns.
//
// Each pattern is either a literal name, a glob (`*`, `?`, `[...]`,
// `{a,b}` alternation), or the Everything wildcard. A name matches when any pattern matches it.
type NameMatcher struct {
	all      bool
	literals map[string]struct{}
	globs    []string
}

// NewNameMatcher compiles patterns into a matcher. An empty pattern list
// matches everything.
//
// Returns:
//   - error: StoreError with ErrInvalidArgument for a malformed glob
func NewNameMatcher(patterns ...string) (*NameMatcher, error) {
	m := &NameMatcher{literals: make(map[string]struct{})}
	if len(patterns) == 0 {
		m.all = true
		return m, nil
	}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == Everything || p == "*":
			m.all = true
		case strings.ContainsAny(p, "*?[{"):
			if !doublestar.ValidatePattern(p) {
				return nil, &StoreError{
					Code:    ErrInvalidArgument,
					Message: "malformed dataset type pattern",
					Name:    p,
				}
			}
			m.globs = append(m.globs, p)
		default:
			m.literals[p] = struct{}{}
		}
	}
	return m, nil
}

// Match reports whether name matches any pattern.
func (m *NameMatcher) Match(name string) bool {
	if m.all {
		return true
	}
	if _, ok := m.literals[name]; ok {
		return true
	}
	for _, g := range m.globs {
		// Patterns were validated in NewNameMatcher.
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}

// MatchesAll reports whether the matcher accepts every name.
func (m *NameMatcher) MatchesAll() bool {
	return m.all
}

// Literals returns the literal names when the matcher has no wildcards, so
// registries can use an indexed lookup. ok is false otherwise.
func (m *NameMatcher) Literals() (names []string, ok bool) {
	if m.all || len(m.globs) > 0 {
		return nil, false
	}
	for n := range m.literals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, true
}
