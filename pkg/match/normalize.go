package match

import (
	"sort"
	"strings"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\`

// NormalizePattern converts a user-provided glob pattern to canonical form.
//
// Unescaped backslashes become forward slashes. Escaped glob metacharacters
// (\*, \?, \[ and so on) are kept so they still match literally.
//
//	"logs\2024\app.gz" → "logs/2024/app.gz"
//	"data/file\*.txt"  → "data/file\*.txt"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(pattern))

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		if i+1 < len(runes) && strings.ContainsRune(globEscapable, runes[i+1]) {
			b.WriteRune('\\')
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		b.WriteRune('/')
	}

	return b.String()
}

// EnsureTrailingSlash adds a trailing slash if not present.
// The empty string is returned unchanged.
func EnsureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// DerivePrefix extracts the longest static directory prefix from a pattern.
//
//	"logs/2024/**/*.gz"  → "logs/2024/"
//	"*.json"             → ""
//	"exact/file.txt"     → "exact/file.txt"
//	"data/\[old\]/*"     → "data/[old]/"
func DerivePrefix(pattern string) string {
	if pattern == "" {
		return ""
	}
	pattern = NormalizePattern(pattern)

	idx := firstUnescapedMeta(pattern)
	switch idx {
	case -1:
		return unescape(pattern)
	case 0:
		return ""
	}

	prefix := pattern[:idx]
	if slash := strings.LastIndex(prefix, "/"); slash >= 0 {
		return unescape(prefix[:slash+1])
	}
	return ""
}

// DerivePrefixes derives a prefix for each pattern and drops prefixes that
// are covered by a shorter one. The result is sorted; [""] means a full
// listing is required.
func DerivePrefixes(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(patterns))
	for _, p := range patterns {
		d := DerivePrefix(p)
		if d == "" {
			return []string{""}
		}
		prefixes = append(prefixes, d)
	}

	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) < len(prefixes[j]) })

	out := make([]string, 0, len(prefixes))
	for _, candidate := range prefixes {
		covered := false
		for _, kept := range out {
			if strings.HasPrefix(candidate, kept) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}

// firstUnescapedMeta returns the index of the first unescaped * ? [ or {,
// or -1 if the pattern is fully literal.
func firstUnescapedMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '\\':
			if i+1 < len(pattern) && strings.IndexByte(`*?[{\`, pattern[i+1]) >= 0 {
				i++
			}
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

// unescape removes glob escapes so the prefix matches stored names.
func unescape(prefix string) string {
	if !strings.ContainsRune(prefix, '\\') {
		return prefix
	}

	var b strings.Builder
	b.Grow(len(prefix))
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '\\' && i+1 < len(prefix) && strings.IndexByte(globEscapable, prefix[i+1]) >= 0 {
			b.WriteByte(prefix[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
