// Package errors classifies CLI failures and maps them to exit codes.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
)

// Exit codes.
const (
	// ExitOK means success, including "nothing to do".
	ExitOK = foundry.ExitSuccess

	// ExitFatal means the run never reached reconciliation: a missing
	// capability, bad usage or config, or a listing failure.
	ExitFatal = foundry.ExitFailure

	// ExitPartial means the run completed with per-name failures. The
	// foundry catalog has no partial-completion code, so it is local.
	ExitPartial = 2
)

// Kind classifies an error by where in the run it happened.
type Kind int

const (
	KindInternal Kind = iota
	KindEnvironment
	KindUsage
	KindConfig
	KindListing
	KindPartial
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindListing:
		return "listing"
	case KindPartial:
		return "partial"
	default:
		return "internal"
	}
}

// ExitCode returns the process exit code for k.
func (k Kind) ExitCode() int {
	if k == KindPartial {
		return ExitPartial
	}
	return ExitFatal
}

// Error is a classified CLI error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for the error.
func (e *Error) ExitCode() int {
	return e.Kind.ExitCode()
}

// New returns an Error of kind k.
func New(k Kind, message string, err error) *Error {
	return &Error{Kind: k, Message: message, Err: err}
}

// NewEnvironmentError reports a missing external capability.
func NewEnvironmentError(message string, err error) *Error {
	return New(KindEnvironment, message, err)
}

// NewUsageError reports bad arguments.
func NewUsageError(format string, args ...any) *Error {
	return New(KindUsage, fmt.Sprintf(format, args...), nil)
}

// NewListingError reports a failed listing.
func NewListingError(message string, err error) *Error {
	return New(KindListing, message, err)
}

// WrapInternal wraps an unexpected error. A cancelled context is reported
// as such rather than as an internal failure.
func WrapInternal(ctx context.Context, err error, message string) *Error {
	if ctx != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		message += " (interrupted)"
	}
	return New(KindInternal, message, err)
}

// ExitCode returns the exit code for any error: ExitOK for nil, the
// classified code for an *Error, and ExitFatal otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFatal
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
