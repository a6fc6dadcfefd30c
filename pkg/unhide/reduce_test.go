package unhide

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/unhide/pkg/match"
	"github.com/3leaps/unhide/pkg/provider"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"folder", "folder/"},
		{"folder/", "folder/"},
		{"a/b", "a/b/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePrefix(tt.input))
		})
	}

	assert.Equal(t, NormalizePrefix("folder"), NormalizePrefix("folder/"))
}

func TestHiddenNames(t *testing.T) {
	records := []provider.VersionRecord{
		{FileName: "z.txt", Action: provider.ActionUpload},
		{FileName: "b/c.txt", Action: provider.ActionHide},
		{FileName: "b/c.txt", Action: provider.ActionUpload},
		{FileName: "a.txt", Action: provider.ActionUpload},
		{FileName: "a.txt", Action: provider.ActionHide},
		{FileName: "a.txt", Action: provider.ActionHide},
		{FileName: "", Action: provider.ActionHide},
		{FileName: "large.bin", Action: provider.ActionStart},
		{FileName: "no-action.txt"},
	}

	names := HiddenNames(records, nil)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, names)
}

func TestHiddenNames_Empty(t *testing.T) {
	names := HiddenNames(nil, nil)
	require.NotNil(t, names)
	assert.Empty(t, names)

	names = HiddenNames([]provider.VersionRecord{{FileName: "a.txt", Action: provider.ActionUpload}}, nil)
	require.NotNil(t, names)
	assert.Empty(t, names)
}

func TestHiddenNames_Idempotent(t *testing.T) {
	records := []provider.VersionRecord{
		{FileName: "c", Action: provider.ActionHide},
		{FileName: "a", Action: provider.ActionHide},
		{FileName: "b", Action: provider.ActionHide},
		{FileName: "a", Action: provider.ActionUpload},
	}

	first := HiddenNames(records, nil)
	second := HiddenNames(records, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b", "c"}, first)
}

func TestHiddenNames_FormatTransparent(t *testing.T) {
	array := `[
		{"fileName":"a.txt","action":"upload"},
		{"fileName":"a.txt","action":"hide"},
		{"fileName":"b/c.txt","Action":"hide"},
		{"fileName":"d.txt","action":"upload"}
	]`
	lines := `{"fileName":"a.txt","action":"upload"}
{"fileName":"a.txt","action":"hide"}
{"fileName":"b/c.txt","Action":"hide"}
{"fileName":"d.txt","action":"upload"}
`

	fromArray, err := provider.ParseRecords(strings.NewReader(array))
	require.NoError(t, err)
	fromLines, err := provider.ParseRecords(strings.NewReader(lines))
	require.NoError(t, err)

	assert.Equal(t, HiddenNames(fromArray, nil), HiddenNames(fromLines, nil))
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, HiddenNames(fromArray, nil))
}

func TestHiddenNames_Matcher(t *testing.T) {
	records := []provider.VersionRecord{
		{FileName: "logs/a.log", Action: provider.ActionHide},
		{FileName: "logs/b.tmp", Action: provider.ActionHide},
		{FileName: "docs/c.md", Action: provider.ActionHide},
	}

	m, err := match.New(match.Config{Includes: []string{"logs/**"}, Excludes: []string{"**/*.tmp"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"logs/a.log"}, HiddenNames(records, m))
}
