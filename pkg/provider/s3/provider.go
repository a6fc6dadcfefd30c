package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/unhide/pkg/provider"
)

// API is the subset of the S3 client used by Provider.
type API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Provider implements provider.Provider for AWS S3 and S3-compatible storage.
type Provider struct {
	client   API
	creds    aws.CredentialsProvider
	bucket   string
	endpoint string
	maxKeys  int
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Checker  = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// The provider uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	p := NewWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg)
	p.creds = awsCfg.Credentials
	return p, nil
}

// NewWithClient wraps an existing client. Credentials are not checked.
func NewWithClient(client API, cfg Config) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		maxKeys:  maxKeys,
	}
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// Type identifies the backend.
func (p *Provider) Type() provider.ProviderType {
	return provider.ProviderS3
}

// Check verifies that the credential chain yields usable credentials.
func (p *Provider) Check(ctx context.Context) error {
	if p.creds == nil {
		return nil
	}
	if _, err := p.creds.Retrieve(ctx); err != nil {
		return &provider.ProviderError{
			Op:       "Check",
			Provider: provider.ProviderS3,
			Bucket:   p.bucket,
			Err: &provider.CapabilityError{
				Capability: "AWS credentials",
				Hint:       "set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, a --profile, or an instance role",
				Err:        err,
			},
		}
	}
	return nil
}

// ListVersions returns a page of object versions and delete markers.
//
// Object versions map to provider.ActionUpload and delete markers to
// provider.ActionHide. The continuation token packs the S3 key and version
// markers together.
func (p *Provider) ListVersions(ctx context.Context, opts provider.ListVersionsOptions) (*provider.ListVersionsResult, error) {
	input := &s3.ListObjectVersionsInput{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(clampMaxKeys(opts.MaxKeys, p.maxKeys))),
	}

	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}

	if opts.ContinuationToken != "" {
		keyMarker, versionMarker := splitToken(opts.ContinuationToken)
		input.KeyMarker = aws.String(keyMarker)
		if versionMarker != "" {
			input.VersionIdMarker = aws.String(versionMarker)
		}
	}

	output, err := p.client.ListObjectVersions(ctx, input)
	if err != nil {
		return nil, p.wrapError("ListVersions", "", err)
	}

	versions := make([]provider.VersionRecord, 0, len(output.Versions)+len(output.DeleteMarkers))
	for _, v := range output.Versions {
		versions = append(versions, provider.VersionRecord{
			FileName:     aws.ToString(v.Key),
			Action:       provider.ActionUpload,
			VersionID:    aws.ToString(v.VersionId),
			IsLatest:     aws.ToBool(v.IsLatest),
			Size:         aws.ToInt64(v.Size),
			LastModified: aws.ToTime(v.LastModified),
		})
	}
	for _, dm := range output.DeleteMarkers {
		versions = append(versions, provider.VersionRecord{
			FileName:     aws.ToString(dm.Key),
			Action:       provider.ActionHide,
			VersionID:    aws.ToString(dm.VersionId),
			IsLatest:     aws.ToBool(dm.IsLatest),
			LastModified: aws.ToTime(dm.LastModified),
		})
	}

	result := &provider.ListVersionsResult{
		Versions:    versions,
		IsTruncated: aws.ToBool(output.IsTruncated),
	}
	if result.IsTruncated {
		result.ContinuationToken = joinToken(aws.ToString(output.NextKeyMarker), aws.ToString(output.NextVersionIdMarker))
	}

	return result, nil
}

// Unhide deletes the delete marker that is the latest version of name.
//
// If name has no latest delete marker it is already visible and Unhide
// returns nil.
func (p *Provider) Unhide(ctx context.Context, name string) error {
	marker, err := p.latestDeleteMarker(ctx, name)
	if err != nil {
		return err
	}
	if marker == "" {
		return nil
	}

	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:    aws.String(p.bucket),
		Key:       aws.String(name),
		VersionId: aws.String(marker),
	})
	if err != nil {
		return p.wrapError("Unhide", name, err)
	}
	return nil
}

// latestDeleteMarker returns the version id of the delete marker currently
// shadowing name, or "" when there is none.
func (p *Provider) latestDeleteMarker(ctx context.Context, name string) (string, error) {
	input := &s3.ListObjectVersionsInput{
		Bucket:  aws.String(p.bucket),
		Prefix:  aws.String(name),
		MaxKeys: aws.Int32(int32(p.maxKeys)),
	}

	for {
		output, err := p.client.ListObjectVersions(ctx, input)
		if err != nil {
			return "", p.wrapError("Unhide", name, err)
		}

		for _, dm := range output.DeleteMarkers {
			if aws.ToString(dm.Key) == name && aws.ToBool(dm.IsLatest) {
				return aws.ToString(dm.VersionId), nil
			}
		}

		// Keys sort lexicographically, so once the listing has moved past
		// name there is nothing left to find.
		if !aws.ToBool(output.IsTruncated) || aws.ToString(output.NextKeyMarker) > name {
			return "", nil
		}
		input.KeyMarker = output.NextKeyMarker
		input.VersionIdMarker = output.NextVersionIdMarker
	}
}

// UnhideCommand renders the aws CLI call equivalent to Unhide(name).
func (p *Provider) UnhideCommand(name string) string {
	argv := []string{"aws", "s3api", "delete-object", "--bucket", p.bucket, "--key", name, "--version-id", provider.LatestDeleteMarker}
	if p.endpoint != "" {
		argv = append(argv, "--endpoint-url", p.endpoint)
	}
	return provider.JoinCommand(argv...)
}

// Close releases any resources held by the provider.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchVersion":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = provider.ErrProviderUnavailable
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrBucketNotFound
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = provider.ErrProviderUnavailable
	}

	return wrapped
}

// tokenSep separates key and version markers inside a continuation token.
// S3 keys cannot contain NUL.
const tokenSep = "\x00"

func joinToken(keyMarker, versionMarker string) string {
	if versionMarker == "" {
		return keyMarker
	}
	return keyMarker + tokenSep + versionMarker
}

func splitToken(token string) (keyMarker, versionMarker string) {
	keyMarker, versionMarker, _ = strings.Cut(token, tokenSep)
	return keyMarker, versionMarker
}

// clampMaxKeys applies defaults and limits to maxKeys values.
// If requested is <= 0, uses providerDefault. Result is clamped to MaxAllowedKeys.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion determines the final region to use after SDK config loading.
//
// sdkRegion already incorporates an explicit cfgRegion or env/profile
// resolution. Only AWS S3 (no custom endpoint) falls back to us-east-1.
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}
