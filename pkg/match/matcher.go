// Package match selects file names with doublestar glob patterns and derives
// the listing prefix those patterns allow.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against file names.
//
// A name matches when it matches at least one include pattern (or no include
// patterns were configured) and none of the exclude patterns.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
	prefixes []string
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a name must match (at least one).
	// Empty means every name is included.
	Includes []string

	// Excludes are glob patterns a name must not match (any).
	Excludes []string
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher from cfg.
//
// Patterns are normalized so Windows-style separators work while escape
// sequences for literal glob metacharacters are preserved.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		includes: includes,
		excludes: excludes,
		prefixes: DerivePrefixes(includes),
	}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) == "" {
			continue
		}
		normalized := NormalizePattern(p)
		if !doublestar.ValidatePattern(normalized) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Match returns true if name passes the include and exclude patterns.
//
// Names are matched as-is; object names are opaque strings.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return true
	}

	if len(m.includes) > 0 {
		matched := false
		for _, inc := range m.includes {
			if matchPattern(inc, name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, exc := range m.excludes {
		if matchPattern(exc, name) {
			return false
		}
	}

	return true
}

// IsEmpty reports whether the matcher accepts every name.
func (m *Matcher) IsEmpty() bool {
	return m == nil || (len(m.includes) == 0 && len(m.excludes) == 0)
}

// Prefixes returns the deduplicated static prefixes of the include patterns.
// An empty string means at least one include needs a full listing.
func (m *Matcher) Prefixes() []string {
	if m == nil {
		return nil
	}
	return m.prefixes
}

// ListPrefix returns the narrowest listing prefix that still covers every
// name under base the include patterns can match.
//
// When all includes share a single static prefix inside base, that prefix is
// returned. Otherwise base is returned unchanged.
func (m *Matcher) ListPrefix(base string) string {
	if m == nil || len(m.prefixes) != 1 {
		return base
	}
	p := m.prefixes[0]
	if len(p) > len(base) && strings.HasPrefix(p, base) {
		return p
	}
	return base
}

// IncludePatterns returns the normalized include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the normalized exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

func matchPattern(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)
	if err != nil {
		// validated in New
		return false
	}
	return matched
}
