package minio

import (
	"context"
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/unhide/pkg/provider"
)

// API is the subset of *minio.Client used by Provider.
type API interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Provider implements provider.Provider for MinIO.
type Provider struct {
	client API
	creds  *credentials.Credentials
	bucket string
	alias  string
}

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Checker  = (*Provider)(nil)
)

// New creates a MinIO provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
		})
	}

	host, secure := splitEndpoint(cfg.Endpoint)
	client, err := minio.New(host, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderMinIO,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	p := NewWithClient(client, cfg)
	p.creds = creds
	return p, nil
}

// NewWithClient wraps an existing client. Credentials are not checked.
func NewWithClient(client API, cfg Config) *Provider {
	alias := cfg.Alias
	if alias == "" {
		alias = DefaultAlias
	}
	return &Provider{client: client, bucket: cfg.Bucket, alias: alias}
}

// Type identifies the backend.
func (p *Provider) Type() provider.ProviderType {
	return provider.ProviderMinIO
}

// Check verifies that credentials resolved to an access key.
func (p *Provider) Check(ctx context.Context) error {
	if p.creds == nil {
		return nil
	}
	v, err := p.creds.Get()
	if err == nil && v.AccessKeyID == "" {
		err = errors.New("no access key found")
	}
	if err != nil {
		return &provider.ProviderError{
			Op:       "Check",
			Provider: provider.ProviderMinIO,
			Bucket:   p.bucket,
			Err: &provider.CapabilityError{
				Capability: "MinIO credentials",
				Hint:       "set MINIO_ACCESS_KEY/MINIO_SECRET_KEY or minio.access_key_id/minio.secret_access_key in the config",
				Err:        err,
			},
		}
	}
	return nil
}

// ListVersions returns every version under the prefix in a single page.
//
// minio-go pages internally, so the result is never truncated.
func (p *Provider) ListVersions(ctx context.Context, opts provider.ListVersionsOptions) (*provider.ListVersionsResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var versions []provider.VersionRecord
	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:       opts.Prefix,
		Recursive:    true,
		WithVersions: true,
	}) {
		if obj.Err != nil {
			return nil, p.wrapError("ListVersions", "", obj.Err)
		}
		versions = append(versions, toRecord(obj))
	}

	if versions == nil {
		versions = []provider.VersionRecord{}
	}
	return &provider.ListVersionsResult{Versions: versions}, nil
}

func toRecord(obj minio.ObjectInfo) provider.VersionRecord {
	action := provider.ActionUpload
	if obj.IsDeleteMarker {
		action = provider.ActionHide
	}
	return provider.VersionRecord{
		FileName:     obj.Key,
		Action:       action,
		VersionID:    obj.VersionID,
		IsLatest:     obj.IsLatest,
		Size:         obj.Size,
		LastModified: obj.LastModified,
	}
}

// Unhide removes the delete marker that is the latest version of name.
// Objects without one are already visible and are left alone.
func (p *Provider) Unhide(ctx context.Context, name string) error {
	marker, err := p.latestDeleteMarker(ctx, name)
	if err != nil {
		return err
	}
	if marker == "" {
		return nil
	}

	if err := p.client.RemoveObject(ctx, p.bucket, name, minio.RemoveObjectOptions{VersionID: marker}); err != nil {
		return p.wrapError("Unhide", name, err)
	}
	return nil
}

func (p *Provider) latestDeleteMarker(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:       name,
		Recursive:    true,
		WithVersions: true,
	}) {
		if obj.Err != nil {
			return "", p.wrapError("Unhide", name, obj.Err)
		}
		if obj.Key == name && obj.IsDeleteMarker && obj.IsLatest {
			return obj.VersionID, nil
		}
	}
	return "", nil
}

// UnhideCommand renders the mc call equivalent to Unhide(name).
func (p *Provider) UnhideCommand(name string) string {
	return provider.JoinCommand("mc", "rm", "--version-id", provider.LatestDeleteMarker, p.alias+"/"+p.bucket+"/"+name)
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

// wrapError maps minio error responses onto provider sentinels.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinIO,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchVersion":
		wrapped.Err = provider.ErrNotFound
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
	case "AccessDenied":
		wrapped.Err = provider.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		wrapped.Err = provider.ErrInvalidCredentials
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		wrapped.Err = provider.ErrThrottled
	case "ServiceUnavailable", "InternalError":
		wrapped.Err = provider.ErrProviderUnavailable
	default:
		switch resp.StatusCode {
		case http.StatusForbidden:
			wrapped.Err = provider.ErrAccessDenied
		case http.StatusTooManyRequests:
			wrapped.Err = provider.ErrThrottled
		case http.StatusServiceUnavailable:
			wrapped.Err = provider.ErrProviderUnavailable
		}
	}

	return wrapped
}
