// Package provider defines abstractions for versioned object storage.
//
// Providers implement a minimal surface area focused on version listing and
// hide-marker removal. Authentication uses each backend's default credential
// chain - providers should not implement custom auth logic.
package provider

import (
	"context"
	"time"
)

// Provider abstracts version listing and unhide operations.
//
// Implementations should:
//   - Use the backend's default credential chain (AWS default config, B2 CLI auth)
//   - Include non-current versions and hide markers when listing
//   - Treat Unhide of an already visible object as success
type Provider interface {
	// ListVersions returns a page of object versions under the given prefix.
	// Use ContinuationToken from ListVersionsResult for subsequent pages.
	ListVersions(ctx context.Context, opts ListVersionsOptions) (*ListVersionsResult, error)

	// Unhide removes the hide marker that currently shadows name.
	Unhide(ctx context.Context, name string) error

	// UnhideCommand renders the command line equivalent to Unhide(name).
	// It must not perform any remote calls.
	UnhideCommand(name string) string

	// Type identifies the backend.
	Type() ProviderType

	// Close releases any resources held by the provider.
	Close() error
}

// Checker is implemented by providers that can verify their external
// requirements (binaries, credentials) before any listing happens.
type Checker interface {
	Check(ctx context.Context) error
}

// ListVersionsOptions configures a ListVersions operation.
type ListVersionsOptions struct {
	// Prefix filters results to names starting with this value.
	// Empty string lists the whole bucket.
	Prefix string

	// ContinuationToken resumes listing from a previous ListVersionsResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of versions returned per page.
	// Zero uses provider default.
	MaxKeys int
}

// ListVersionsResult contains a page of versions from a ListVersions operation.
type ListVersionsResult struct {
	// Versions contains the version records for this page.
	Versions []VersionRecord

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// VersionRecord is a single entry from a version listing.
type VersionRecord struct {
	// FileName is the object path relative to the bucket.
	FileName string `json:"fileName"`

	// Action is the version action ("upload", "hide", "start", "folder").
	Action string `json:"action"`

	// VersionID identifies the version, when the backend exposes it.
	VersionID string `json:"versionId,omitempty"`

	// IsLatest reports whether this is the current version of FileName.
	IsLatest bool `json:"isLatest,omitempty"`

	// Size is the content length in bytes (zero for hide markers).
	Size int64 `json:"size,omitempty"`

	// LastModified is when the version was created.
	LastModified time.Time `json:"lastModified,omitempty"`
}

// IsHide reports whether the record is a hide marker.
func (r VersionRecord) IsHide() bool {
	return r.Action == ActionHide
}

// Version actions.
const (
	ActionUpload = "upload"
	ActionHide   = "hide"
	ActionStart  = "start"
	ActionFolder = "folder"
)

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderB2 drives the Backblaze B2 command line tool.
	ProviderB2 ProviderType = "b2"

	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderMinIO represents a MinIO deployment accessed with minio-go.
	ProviderMinIO ProviderType = "minio"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType converts a user-supplied backend name to a ProviderType.
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(s) {
	case ProviderB2, ProviderS3, ProviderMinIO:
		return ProviderType(s), nil
	default:
		return "", &UnsupportedProviderError{Name: s}
	}
}

// UnsupportedProviderError reports an unknown backend name.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return "unsupported backend " + `"` + e.Name + `"` + " (want b2, s3 or minio)"
}
