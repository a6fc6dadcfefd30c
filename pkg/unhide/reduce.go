// Package unhide finds hidden files in a version listing and removes their
// hide markers.
//
// The pipeline is linear:
//   - provider.ListAllVersions returns every version under a prefix
//   - HiddenNames reduces the listing to the distinct hidden names
//   - Reconciler previews or executes one unhide per name
package unhide

import (
	"sort"

	"github.com/3leaps/unhide/pkg/match"
	"github.com/3leaps/unhide/pkg/provider"
)

// NormalizePrefix scopes prefix to a directory: a non-empty prefix gets a
// trailing "/" so "folder" and "folder/" select the same names.
func NormalizePrefix(prefix string) string {
	return match.EnsureTrailingSlash(prefix)
}

// HiddenNames returns the distinct names that carry a hide marker, sorted.
//
// A name is included when any of its versions is a hide marker. Records
// without a file name are skipped. When m is non-nil only names it matches
// are kept. The result is never nil.
func HiddenNames(records []provider.VersionRecord, m *match.Matcher) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if !r.IsHide() || r.FileName == "" {
			continue
		}
		if !m.Match(r.FileName) {
			continue
		}
		seen[r.FileName] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
