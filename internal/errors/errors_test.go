package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("exec: \"b2\": executable file not found in $PATH")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message and cause", NewEnvironmentError("b2 CLI not available", cause), "b2 CLI not available: " + cause.Error()},
		{"message only", NewUsageError("bucket argument is required"), "bucket argument is required"},
		{"cause only", New(KindListing, "", cause), cause.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"environment", NewEnvironmentError("missing", nil), ExitFatal},
		{"usage", NewUsageError("bad"), ExitFatal},
		{"listing", NewListingError("list failed", errors.New("boom")), ExitFatal},
		{"config", New(KindConfig, "bad config", nil), ExitFatal},
		{"partial", New(KindPartial, "1 failed", nil), ExitPartial},
		{"wrapped partial", fmt.Errorf("run: %w", New(KindPartial, "1 failed", nil)), ExitPartial},
		{"plain error", errors.New("boom"), ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitCodes_FoundryCatalog(t *testing.T) {
	assert.Equal(t, foundry.ExitSuccess, ExitOK)
	assert.Equal(t, foundry.ExitFailure, ExitFatal)
	assert.NotEqual(t, ExitOK, ExitPartial)
	assert.NotEqual(t, ExitFatal, ExitPartial)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindListing, KindOf(fmt.Errorf("x: %w", NewListingError("y", nil))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "environment", KindEnvironment.String())
	assert.Equal(t, "internal", Kind(99).String())
}

func TestWrapInternal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WrapInternal(ctx, context.Canceled, "Failed to list")
	assert.Equal(t, "Failed to list (interrupted): context canceled", err.Error())
	assert.ErrorIs(t, err, context.Canceled)

	err = WrapInternal(context.Background(), errors.New("boom"), "Failed")
	assert.Equal(t, "Failed: boom", err.Error())
	assert.Equal(t, KindInternal, err.Kind)
}
