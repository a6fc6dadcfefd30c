// Package config loads the unhide configuration from defaults, an optional
// YAML file, UNHIDE_* environment variables and command-line overrides.
package config

import (
	"strings"

	"github.com/3leaps/unhide/pkg/provider"
)

// Config is the effective configuration for one run.
type Config struct {
	// Backend selects the storage backend: b2, s3 or minio.
	Backend string `mapstructure:"backend" json:"backend" yaml:"backend"`

	B2      B2Config      `mapstructure:"b2" json:"b2" yaml:"b2"`
	S3      S3Config      `mapstructure:"s3" json:"s3" yaml:"s3"`
	MinIO   MinIOConfig   `mapstructure:"minio" json:"minio" yaml:"minio"`
	Match   MatchConfig   `mapstructure:"match" json:"match" yaml:"match"`
	Output  OutputConfig  `mapstructure:"output" json:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// B2Config configures the b2 CLI backend.
type B2Config struct {
	Binary string `mapstructure:"binary" json:"binary" yaml:"binary"`
}

// S3Config configures the S3 backend. Static keys, when both are set, take
// precedence over the AWS default chain.
type S3Config struct {
	Region          string `mapstructure:"region" json:"region" yaml:"region"`
	Profile         string `mapstructure:"profile" json:"profile" yaml:"profile"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" json:"force_path_style" yaml:"force_path_style"`
	MaxKeys         int    `mapstructure:"max_keys" json:"max_keys" yaml:"max_keys"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key" yaml:"secret_access_key"`
}

// MinIOConfig configures the MinIO backend. Empty keys fall back to the
// MINIO_* and AWS_* environment variables.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	Region          string `mapstructure:"region" json:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key" yaml:"secret_access_key"`
	Alias           string `mapstructure:"alias" json:"alias" yaml:"alias"`
}

// MatchConfig narrows the hidden names that are acted on.
type MatchConfig struct {
	Include []string `mapstructure:"include" json:"include" yaml:"include"`
	Exclude []string `mapstructure:"exclude" json:"exclude" yaml:"exclude"`
}

// OutputConfig selects the result format on stdout.
type OutputConfig struct {
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// LoggingConfig configures the stderr logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level" json:"level" yaml:"level"`
	Profile string `mapstructure:"profile" json:"profile" yaml:"profile"`
}

// Output formats.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
)

// Logging profiles.
const (
	ProfileConsole    = "console"
	ProfileStructured = "structured"
)

// ProviderType returns the parsed backend.
func (c *Config) ProviderType() (provider.ProviderType, error) {
	return provider.ParseProviderType(c.Backend)
}

// normalize lower-cases enumerated values so validation is case-insensitive.
func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Profile = strings.ToLower(strings.TrimSpace(c.Logging.Profile))
	c.Match.Include = compact(c.Match.Include)
	c.Match.Exclude = compact(c.Match.Exclude)
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.S3.SecretAccessKey = MaskSecret(c.S3.SecretAccessKey)
	c.MinIO.SecretAccessKey = MaskSecret(c.MinIO.SecretAccessKey)
	return c
}

// MaskSecret masks all but the last 4 characters of a secret. Empty stays
// empty.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
