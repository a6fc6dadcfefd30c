package output

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// TextWriter writes human-readable lines.
//
// Dry-run previews are written as the bare command so the output can be
// pasted into a shell. Failures and fatal errors are not written here; the
// CLI logger reports them on stderr.
type TextWriter struct {
	w  io.Writer
	mu sync.Mutex

	closed bool
}

// NewTextWriter creates a text writer on w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WritePlan writes the preview command.
func (tw *TextWriter) WritePlan(ctx context.Context, plan *PlanRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tw.println(plan.Command)
}

// WriteResult writes one line per successful unhide.
func (tw *TextWriter) WriteResult(ctx context.Context, res *ResultRecord) error {
	if res.Status != StatusUnhidden {
		return nil
	}
	return tw.println("unhidden: " + res.Name)
}

// WriteError is a no-op for text output.
func (tw *TextWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return nil
}

// WriteSummary writes the closing line of the run.
func (tw *TextWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return tw.println(SummaryText(sum))
}

// Close marks the writer as closed.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.closed = true
	return nil
}

func (tw *TextWriter) println(line string) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrWriterClosed
	}
	if err := writeAll(tw.w, []byte(line+"\n")); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// SummaryText renders sum as a single sentence.
func SummaryText(sum *SummaryRecord) string {
	scope := sum.Bucket + "/" + sum.Prefix

	switch {
	case sum.Hidden == 0:
		return "Nothing to do: no hidden files in " + scope
	case sum.DryRun:
		return fmt.Sprintf("Dry run: %d hidden %s in %s would be unhidden", sum.Hidden, plural(sum.Hidden), scope)
	}

	line := fmt.Sprintf("Unhid %d of %d hidden %s in %s", sum.Unhidden, sum.Hidden, plural(sum.Hidden), scope)
	if sum.Failed > 0 {
		line += fmt.Sprintf(", %d failed", sum.Failed)
	}
	if sum.Interrupted {
		line += fmt.Sprintf(" (interrupted after %d)", sum.Attempted)
	}
	return line
}

func plural(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}

var _ Writer = (*TextWriter)(nil)
