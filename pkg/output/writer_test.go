package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/unhide/pkg/provider"
)

func decodeRecord(t *testing.T, line []byte, payload any) Record {
	t.Helper()
	var record Record
	require.NoError(t, json.Unmarshal(line, &record))
	require.NoError(t, json.Unmarshal(record.Data, payload))
	return record
}

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	assert.NotNil(t, w)
	assert.Equal(t, "run-123", w.runID)
	assert.Equal(t, "b2", w.provider)
}

func TestJSONLWriter_WritePlan(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	err := w.WritePlan(context.Background(), &PlanRecord{
		Name:    "b/c.txt",
		Command: "b2 file unhide b2://mybucket/b/c.txt",
	})
	require.NoError(t, err)

	var plan PlanRecord
	record := decodeRecord(t, buf.Bytes(), &plan)

	assert.Equal(t, TypePlan, record.Type)
	assert.Equal(t, "run-123", record.RunID)
	assert.Equal(t, "b2", record.Provider)
	assert.False(t, record.TS.IsZero())
	assert.Equal(t, "b/c.txt", plan.Name)
	assert.Equal(t, "b2 file unhide b2://mybucket/b/c.txt", plan.Command)
}

func TestJSONLWriter_WriteResult(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "s3")

	err := w.WriteResult(context.Background(), &ResultRecord{
		Name:   "a.txt",
		Status: StatusFailed,
		Error:  "access denied",
	})
	require.NoError(t, err)

	var res ResultRecord
	record := decodeRecord(t, buf.Bytes(), &res)

	assert.Equal(t, TypeResult, record.Type)
	assert.Equal(t, "a.txt", res.Name)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "access denied", res.Error)
}

func TestJSONLWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "s3")

	err := w.WriteError(context.Background(), &ErrorRecord{
		Code:    ErrCodeAccessDenied,
		Message: "access denied to bucket",
		Prefix:  "secret/",
	})
	require.NoError(t, err)

	var errData ErrorRecord
	record := decodeRecord(t, buf.Bytes(), &errData)

	assert.Equal(t, TypeError, record.Type)
	assert.Equal(t, ErrCodeAccessDenied, errData.Code)
	assert.Equal(t, "secret/", errData.Prefix)
}

func TestJSONLWriter_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	err := w.WriteSummary(context.Background(), &SummaryRecord{
		Bucket:        "mybucket",
		Prefix:        "docs/",
		Hidden:        2,
		Attempted:     2,
		Unhidden:      1,
		Failed:        1,
		Duration:      3 * time.Second,
		DurationHuman: "3s",
	})
	require.NoError(t, err)

	var sum SummaryRecord
	record := decodeRecord(t, buf.Bytes(), &sum)

	assert.Equal(t, TypeSummary, record.Type)
	assert.Equal(t, "mybucket", sum.Bucket)
	assert.Equal(t, "docs/", sum.Prefix)
	assert.Equal(t, 2, sum.Hidden)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3*time.Second, sum.Duration)
	assert.False(t, sum.Interrupted)
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	require.NoError(t, w.WritePlan(context.Background(), &PlanRecord{Name: "a.txt"}))
	require.NoError(t, w.WritePlan(context.Background(), &PlanRecord{Name: "b.txt"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record))
	}
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	require.NoError(t, w.Close())

	err := w.WritePlan(context.Background(), &PlanRecord{Name: "a.txt"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	const numWriters = 10
	const writesPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				_ = w.WriteResult(context.Background(), &ResultRecord{
					Name:   fmt.Sprintf("w%d/f%d", writerID, j),
					Status: StatusUnhidden,
				})
			}
		}(i)
	}

	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)
	for i, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record), "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "b2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WritePlan(ctx, &PlanRecord{Name: "a.txt"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())

	// Summaries still go out so an interrupted run is reported.
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Bucket: "b", Interrupted: true}))
	var sum SummaryRecord
	decodeRecord(t, buf.Bytes(), &sum)
	assert.True(t, sum.Interrupted)
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	w := NewJSONLWriter(&failingWriter{err: errors.New("disk full")}, "run-123", "b2")

	err := w.WritePlan(context.Background(), &PlanRecord{Name: "a.txt"})
	require.Error(t, err)

	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	shortWriter := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(shortWriter, "run-123", "b2")

	err := w.WritePlan(context.Background(), &PlanRecord{
		Name:    "data/2024/file.parquet",
		Command: "b2 file unhide b2://bucket/data/2024/file.parquet",
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(shortWriter.buf.String()), "\n")
	assert.Len(t, lines, 1)

	var record Record
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &record), "output should be valid JSON despite short writes")
	assert.Equal(t, TypePlan, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	w := NewJSONLWriter(&zeroWriteWriter{}, "run-123", "b2")

	err := w.WritePlan(context.Background(), &PlanRecord{Name: "a.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter writes at most bytesPerWrite bytes per call.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestErrorRecord_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(ErrorRecord{Code: ErrCodeInternal, Message: "boom"})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "name")
	assert.NotContains(t, string(data), "prefix")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"capability", &provider.CapabilityError{Capability: "b2 CLI"}, ErrCodeCapabilityMissing},
		{"bucket", &provider.ProviderError{Op: "ListVersions", Err: provider.ErrBucketNotFound}, ErrCodeBucketNotFound},
		{"not found", provider.ErrNotFound, ErrCodeNotFound},
		{"access denied", fmt.Errorf("wrap: %w", provider.ErrAccessDenied), ErrCodeAccessDenied},
		{"credentials", provider.ErrInvalidCredentials, ErrCodeInvalidCredentials},
		{"malformed", provider.ErrMalformedListing, ErrCodeMalformedListing},
		{"throttled", provider.ErrThrottled, ErrCodeThrottled},
		{"unavailable", provider.ErrProviderUnavailable, ErrCodeUnavailable},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"other", errors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func BenchmarkJSONLWriter_WriteResult(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "run-123", "b2")
	res := &ResultRecord{Name: "data/2024/01/15/file.parquet", Status: StatusUnhidden}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteResult(ctx, res)
	}
}
