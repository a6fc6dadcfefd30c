package provider

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name: "with key",
			err: &ProviderError{
				Op:       "Unhide",
				Provider: ProviderB2,
				Bucket:   "my-bucket",
				Key:      "path/to/file.txt",
				Err:      ErrNotFound,
			},
			expected: "b2 Unhide: my-bucket/path/to/file.txt: object not found",
		},
		{
			name: "without key",
			err: &ProviderError{
				Op:       "ListVersions",
				Provider: ProviderS3,
				Bucket:   "my-bucket",
				Err:      ErrAccessDenied,
			},
			expected: "s3 ListVersions: my-bucket: access denied",
		},
		{
			name: "without bucket",
			err: &ProviderError{
				Op:       "New",
				Provider: ProviderMinIO,
				Err:      errors.New("endpoint is required"),
			},
			expected: "minio New: endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	err := &ProviderError{Op: "Unhide", Provider: ProviderS3, Bucket: "b", Key: "k", Err: ErrThrottled}

	assert.True(t, errors.Is(err, ErrThrottled))
	assert.False(t, errors.Is(err, ErrAccessDenied))
	assert.Equal(t, ErrThrottled, err.Unwrap())
}

func TestCapabilityError(t *testing.T) {
	err := &CapabilityError{
		Capability: "b2 CLI",
		Hint:       "install with: pip install b2",
		Err:        exec.ErrNotFound,
	}

	assert.True(t, IsCapabilityMissing(err))
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Equal(t, "b2 CLI not available: executable file not found in $PATH (install with: pip install b2)", err.Error())

	wrapped := &ProviderError{Op: "Check", Provider: ProviderB2, Err: err}
	assert.True(t, IsCapabilityMissing(wrapped))
	assert.False(t, IsCapabilityMissing(ErrNotFound))
}

func TestSentinelHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&ProviderError{Err: ErrNotFound}))
	assert.True(t, IsAccessDenied(&ProviderError{Err: ErrAccessDenied}))
	assert.True(t, IsBucketNotFound(&ProviderError{Err: ErrBucketNotFound}))
	assert.True(t, IsInvalidCredentials(&ProviderError{Err: ErrInvalidCredentials}))
	assert.True(t, IsProviderUnavailable(&ProviderError{Err: ErrProviderUnavailable}))
	assert.True(t, IsThrottled(&ProviderError{Err: ErrThrottled}))
	assert.False(t, IsThrottled(ErrProviderUnavailable))
}

func TestParseProviderType(t *testing.T) {
	for _, name := range []string{"b2", "s3", "minio"} {
		pt, err := ParseProviderType(name)
		assert.NoError(t, err)
		assert.Equal(t, name, pt.String())
	}

	_, err := ParseProviderType("gcs")
	var unsupported *UnsupportedProviderError
	assert.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), `"gcs"`)
}
