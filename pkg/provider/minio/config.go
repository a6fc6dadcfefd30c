// Package minio implements the provider interface on minio-go.
//
// MinIO reports hide markers as versions with IsDeleteMarker set. Unhiding
// removes the delete marker that is the latest version of an object.
package minio

import "strings"

// Config configures a MinIO provider.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Endpoint is host[:port], optionally prefixed with http:// or https://
	// (required). A scheme prefix decides TLS; otherwise TLS is used for
	// everything except local development endpoints.
	Endpoint string

	// Region is passed to the client when set.
	Region string

	// AccessKeyID and SecretAccessKey are explicit credentials. When both are
	// empty the MINIO_* and then AWS_* environment variables are used.
	AccessKeyID     string
	SecretAccessKey string

	// SessionToken accompanies temporary credentials.
	SessionToken string

	// Alias is the mc alias used when rendering preview commands.
	Alias string
}

// DefaultAlias is used in preview commands when Config.Alias is empty.
const DefaultAlias = "myminio"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required for the minio backend"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}

// splitEndpoint strips a URL scheme from endpoint and reports whether TLS
// should be used.
func splitEndpoint(endpoint string) (host string, secure bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return endpoint, shouldUseSSL(endpoint)
	}
}

// shouldUseSSL returns false for localhost, 127.0.0.1, and docker service
// names such as minio:9000.
func shouldUseSSL(endpoint string) bool {
	host := strings.Split(endpoint, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return false
	}
	if strings.HasPrefix(host, "minio") && !strings.Contains(host, ".") {
		return false
	}
	return true
}
