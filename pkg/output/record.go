// Package output renders run results as JSONL records or plain text.
//
// JSONL output is structured as typed record envelopes. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/3leaps/unhide/pkg/provider"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: unhide.<type>.v<version>
const (
	// TypePlan identifies dry-run preview records.
	TypePlan = "unhide.plan.v1"

	// TypeResult identifies per-name execution records.
	TypeResult = "unhide.result.v1"

	// TypeError identifies error records.
	TypeError = "unhide.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "unhide.summary.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "unhide.plan.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID correlates all records of one invocation.
	RunID string `json:"run_id"`

	// Provider identifies the backend (e.g., "b2", "s3").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// PlanRecord is emitted once per hidden name in dry-run mode.
type PlanRecord struct {
	// Name is the hidden file name.
	Name string `json:"name"`

	// Command is the command that would remove the hide marker.
	Command string `json:"command"`
}

// Result status values.
const (
	StatusUnhidden = "unhidden"
	StatusFailed   = "failed"
)

// ResultRecord is emitted once per attempted unhide.
type ResultRecord struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorRecord is the data payload for fatal errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Name is the file name related to this error, if applicable.
	Name string `json:"name,omitempty"`

	// Prefix is the prefix being listed when the error occurred.
	Prefix string `json:"prefix,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeBucketNotFound     = "BUCKET_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeCapabilityMissing  = "CAPABILITY_MISSING"
	ErrCodeMalformedListing   = "MALFORMED_LISTING"
	ErrCodeThrottled          = "THROTTLED"
	ErrCodeUnavailable        = "UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeCanceled           = "CANCELED"
	ErrCodeInternal           = "INTERNAL"
)

// ErrorCode maps an error to its machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case provider.IsCapabilityMissing(err):
		return ErrCodeCapabilityMissing
	case provider.IsBucketNotFound(err):
		return ErrCodeBucketNotFound
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsInvalidCredentials(err):
		return ErrCodeInvalidCredentials
	case errors.Is(err, provider.ErrMalformedListing):
		return ErrCodeMalformedListing
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return ErrCodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	default:
		return ErrCodeInternal
	}
}

// SummaryRecord is the data payload for the final summary.
type SummaryRecord struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
	DryRun bool   `json:"dry_run"`

	// Hidden is the number of distinct hidden names found.
	Hidden int `json:"hidden"`

	Attempted int `json:"attempted"`
	Unhidden  int `json:"unhidden"`
	Failed    int `json:"failed"`

	// Interrupted is set when the run stopped before every name was
	// attempted.
	Interrupted bool `json:"interrupted,omitempty"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
