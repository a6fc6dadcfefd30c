package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer reports the progress and outcome of a run.
//
// Implementations must be safe for concurrent use. Each Write* method emits
// one complete record.
type Writer interface {
	// WritePlan emits a dry-run preview for one name.
	WritePlan(ctx context.Context, plan *PlanRecord) error

	// WriteResult emits the outcome of one unhide.
	WriteResult(ctx context.Context, res *ResultRecord) error

	// WriteError emits a fatal error record.
	WriteError(ctx context.Context, err *ErrorRecord) error

	// WriteSummary emits the final summary.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w        io.Writer
	runID    string
	provider string
	mu       sync.Mutex

	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (usually stdout)
//   - runID: Correlation ID for this invocation
//   - provider: Backend identifier (e.g., "b2")
func NewJSONLWriter(w io.Writer, runID, provider string) *JSONLWriter {
	return &JSONLWriter{
		w:        w,
		runID:    runID,
		provider: provider,
	}
}

// WritePlan emits a plan record.
func (jw *JSONLWriter) WritePlan(ctx context.Context, plan *PlanRecord) error {
	return jw.writeRecord(ctx, TypePlan, plan)
}

// WriteResult emits a result record.
func (jw *JSONLWriter) WriteResult(ctx context.Context, res *ResultRecord) error {
	return jw.writeRecord(ctx, TypeResult, res)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, err)
}

// WriteSummary emits a summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the writer as closed.
//
// The underlying writer is NOT closed; that is the caller's job.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
//
// Summary and error records are written even after ctx is cancelled so an
// interrupted run still reports how far it got.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	final := recordType == TypeSummary || recordType == TypeError
	if err := ctx.Err(); err != nil && !final {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		RunID:    jw.runID,
		Provider: jw.provider,
		Data:     dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return n < len(p) with a nil error; a truncated line
	// would corrupt the stream.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var _ Writer = (*JSONLWriter)(nil)
