package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"data/2024/**", "data/2024/**"},
		{`data\2024\x.gz`, "data/2024/x.gz"},
		{`data\2024\**`, `data/2024\**`},
		{`data/file\*.txt`, `data/file\*.txt`},
		{`data/\[backup\]/*`, `data/\[backup\]/*`},
		{`trailing\`, "trailing/"},
		{"/leading/**", "/leading/**"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePattern(tt.input))
		})
	}
}

func TestEnsureTrailingSlash(t *testing.T) {
	assert.Equal(t, "", EnsureTrailingSlash(""))
	assert.Equal(t, "docs/", EnsureTrailingSlash("docs"))
	assert.Equal(t, "docs/", EnsureTrailingSlash("docs/"))
	assert.Equal(t, "/", EnsureTrailingSlash("/"))
}

func TestDerivePrefix(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"", ""},
		{"logs/2024/**/*.gz", "logs/2024/"},
		{"*.json", ""},
		{"logs/app-{a,b}/*.log", "logs/"},
		{"exact/path/file.txt", "exact/path/file.txt"},
		{"data/[0-9]*/*.csv", "data/"},
		{"data/2024-*", "data/"},
		{"nodir*", ""},
		{`data/file\*.txt`, "data/file*.txt"},
		{`data/\[old\]/*.log`, "data/[old]/"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, DerivePrefix(tt.pattern))
		})
	}
}

func TestDerivePrefixes(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{"none", nil, nil},
		{"distinct", []string{"data/2025/**", "data/2024/**"}, []string{"data/2024/", "data/2025/"}},
		{"parent covers child", []string{"data/2024/**", "data/**"}, []string{"data/"}},
		{"full listing", []string{"data/**", "**/*.json"}, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DerivePrefixes(tt.patterns))
		})
	}
}
