// Package b2 implements the provider interface by driving the Backblaze B2
// command line tool.
//
// Listing runs `b2 ls --versions --recursive --json` and decodes the output
// with provider.ParseRecords, so both the JSON array and the one-object-per-
// line shapes printed by different CLI versions are accepted. Unhiding runs
// `b2 file unhide`. Authentication is whatever the CLI is already authorized
// with (`b2 account authorize` or B2_APPLICATION_KEY_ID/B2_APPLICATION_KEY).
package b2

// Config configures a B2 provider.
type Config struct {
	// Bucket is the B2 bucket name (required).
	Bucket string

	// Binary is the CLI executable name or path. Defaults to "b2".
	Binary string
}

// DefaultBinary is the CLI executable looked up on PATH.
const DefaultBinary = "b2"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "b2 config: " + e.Field + ": " + e.Message
}
