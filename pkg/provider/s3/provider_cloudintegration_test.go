//go:build cloudintegration

package s3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/unhide/pkg/provider"
	"github.com/3leaps/unhide/pkg/provider/s3"
	"github.com/3leaps/unhide/test/cloudtest"
)

func newTestProvider(t *testing.T, ctx context.Context, bucket string) *s3.Provider {
	t.Helper()

	p, err := s3.New(ctx, s3.Config{
		Bucket:          bucket,
		Endpoint:        cloudtest.Endpoint,
		Region:          cloudtest.Region,
		AccessKeyID:     cloudtest.TestAccessKeyID,
		SecretAccessKey: cloudtest.TestSecretAccessKey,
		ForcePathStyle:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProvider_ListVersions_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	t.Run("reports delete markers as hide", func(t *testing.T) {
		bucket := cloudtest.CreateVersionedBucket(t, ctx)
		cloudtest.PutObjects(t, ctx, bucket, []string{"data/a.txt", "data/b.txt", "other/c.txt"})
		cloudtest.HideObject(t, ctx, bucket, "data/a.txt")

		p := newTestProvider(t, ctx, bucket)
		require.NoError(t, p.Check(ctx))

		records, err := provider.ListAllVersions(ctx, p, "data/")
		require.NoError(t, err)

		var hidden []string
		for _, r := range records {
			if r.IsHide() {
				hidden = append(hidden, r.FileName)
			}
		}
		assert.Len(t, records, 3)
		assert.Equal(t, []string{"data/a.txt"}, hidden)
	})

	t.Run("returns error for non-existent bucket", func(t *testing.T) {
		p := newTestProvider(t, ctx, "nonexistent-bucket-12345")

		_, err := p.ListVersions(ctx, provider.ListVersionsOptions{})
		require.Error(t, err)

		var provErr *provider.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.ErrorIs(t, provErr.Err, provider.ErrBucketNotFound)
	})
}

func TestProvider_Unhide_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateVersionedBucket(t, ctx)
	cloudtest.PutObject(t, ctx, bucket, "a.txt", []byte("hello"))
	cloudtest.HideObject(t, ctx, bucket, "a.txt")
	require.False(t, cloudtest.ObjectVisible(t, ctx, bucket, "a.txt"))

	p := newTestProvider(t, ctx, bucket)

	require.NoError(t, p.Unhide(ctx, "a.txt"))
	assert.True(t, cloudtest.ObjectVisible(t, ctx, bucket, "a.txt"))

	// A second call finds no latest delete marker and is a no-op.
	require.NoError(t, p.Unhide(ctx, "a.txt"))
	assert.True(t, cloudtest.ObjectVisible(t, ctx, bucket, "a.txt"))
}
