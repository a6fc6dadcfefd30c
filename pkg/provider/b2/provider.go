package b2

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/3leaps/unhide/pkg/provider"
)

// Provider implements provider.Provider on top of the b2 CLI.
type Provider struct {
	runner Runner
	binary string
	bucket string
}

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Checker  = (*Provider)(nil)
)

// New creates a provider that executes the configured binary.
func New(cfg Config) (*Provider, error) {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return NewWithRunner(&ExecRunner{Binary: cfg.Binary}, cfg)
}

// NewWithRunner creates a provider using runner for all CLI calls.
func NewWithRunner(runner Runner, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Provider{runner: runner, binary: binary, bucket: cfg.Bucket}, nil
}

// Type identifies the backend.
func (p *Provider) Type() provider.ProviderType {
	return provider.ProviderB2
}

// Check verifies that the CLI binary is installed.
//
// JSON decoding of the listing is built in, so the CLI is the only external
// requirement.
func (p *Provider) Check(ctx context.Context) error {
	if _, err := p.runner.LookPath(); err != nil {
		return &provider.ProviderError{
			Op:       "Check",
			Provider: provider.ProviderB2,
			Err: &provider.CapabilityError{
				Capability: p.binary + " CLI",
				Hint:       "install it with: pip install b2",
				Err:        err,
			},
		}
	}
	return nil
}

// ListVersions returns every version under the prefix in one page.
// The CLI pages internally, so the result is never truncated.
func (p *Provider) ListVersions(ctx context.Context, opts provider.ListVersionsOptions) (*provider.ListVersionsResult, error) {
	res, err := p.runner.Run(ctx, "ls", "--versions", "--recursive", "--json", p.uri(opts.Prefix))
	if err != nil {
		return nil, p.wrapError("ListVersions", "", res, err)
	}

	records, err := provider.ParseRecords(bytes.NewReader(res.Stdout))
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "ListVersions",
			Provider: provider.ProviderB2,
			Bucket:   p.bucket,
			Err:      err,
		}
	}

	// Drop folder placeholders; they never carry hide markers.
	versions := records[:0]
	for _, r := range records {
		if r.Action != provider.ActionFolder {
			versions = append(versions, r)
		}
	}

	return &provider.ListVersionsResult{Versions: versions}, nil
}

// Unhide runs `b2 file unhide` for name.
func (p *Provider) Unhide(ctx context.Context, name string) error {
	res, err := p.runner.Run(ctx, p.unhideArgs(name)...)
	if err != nil {
		return p.wrapError("Unhide", name, res, err)
	}
	return nil
}

// UnhideCommand renders the exact command Unhide would run.
func (p *Provider) UnhideCommand(name string) string {
	return provider.JoinCommand(append([]string{p.binary}, p.unhideArgs(name)...)...)
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) unhideArgs(name string) []string {
	return []string{"file", "unhide", p.uri(name)}
}

func (p *Provider) uri(path string) string {
	return "b2://" + p.bucket + "/" + path
}

// wrapError classifies CLI failures by the message on stderr.
func (p *Provider) wrapError(op, key string, res *Result, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderB2,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || res == nil {
		return wrapped
	}

	msg := strings.ToLower(res.Stderr)
	var sentinel error
	switch {
	case strings.Contains(msg, "bucket") && (strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")):
		sentinel = provider.ErrBucketNotFound
	case strings.Contains(msg, "file not present") || strings.Contains(msg, "no such file") || strings.Contains(msg, "not found"):
		sentinel = provider.ErrNotFound
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "bad_auth_token") || strings.Contains(msg, "expired_auth_token") || strings.Contains(msg, "not authorized"):
		sentinel = provider.ErrInvalidCredentials
	case strings.Contains(msg, "access_denied") || strings.Contains(msg, "access denied") || strings.Contains(msg, "forbidden"):
		sentinel = provider.ErrAccessDenied
	case strings.Contains(msg, "too_many_requests") || strings.Contains(msg, "429"):
		sentinel = provider.ErrThrottled
	case strings.Contains(msg, "service_unavailable") || strings.Contains(msg, "503"):
		sentinel = provider.ErrProviderUnavailable
	}
	if sentinel != nil {
		wrapped.Err = &classifiedError{sentinel: sentinel, cause: exitErr}
	}
	return wrapped
}

// classifiedError keeps the CLI message while matching a provider sentinel.
type classifiedError struct {
	sentinel error
	cause    *ExitError
}

func (e *classifiedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}
