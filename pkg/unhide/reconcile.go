package unhide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/unhide/pkg/output"
	"github.com/3leaps/unhide/pkg/provider"
)

// Reconciler removes hide markers one name at a time.
type Reconciler struct {
	// Provider executes and renders unhide operations.
	Provider provider.Provider

	// Bucket and Prefix describe the scope for reporting.
	Bucket string
	Prefix string

	// DryRun previews the commands instead of running them.
	DryRun bool

	// Writer receives plan, result and summary records. Optional.
	Writer output.Writer

	// Logger receives per-name failures. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Failure records one name that could not be unhidden.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string {
	return f.Name + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result summarizes a reconcile run.
type Result struct {
	// Hidden is the number of names handed to Run.
	Hidden int

	Attempted int
	Unhidden  int
	Failed    int
	Failures  []Failure

	// Interrupted is set when ctx ended before every name was attempted.
	Interrupted bool

	Duration time.Duration
}

// ErrPartialFailure is returned by Err when at least one name failed.
var ErrPartialFailure = errors.New("some files could not be unhidden")

// Err returns nil when every attempted name succeeded and the run was not
// interrupted.
func (r *Result) Err() error {
	switch {
	case r.Failed > 0:
		return fmt.Errorf("%w: %d of %d failed", ErrPartialFailure, r.Failed, r.Attempted)
	case r.Interrupted:
		return context.Canceled
	}
	return nil
}

// Run previews or executes an unhide for each name, in order.
//
// In dry-run mode no remote call is made. Otherwise a failure is logged,
// counted and skipped; it never stops the remaining names. If ctx is
// cancelled the loop stops before the next name and the result is marked
// interrupted. A summary is always written.
func (r *Reconciler) Run(ctx context.Context, names []string) (*Result, error) {
	start := time.Now()
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &Result{Hidden: len(names)}

	for _, name := range names {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		if r.DryRun {
			if err := r.writePlan(ctx, name); err != nil {
				res.Duration = time.Since(start)
				return res, err
			}
			continue
		}

		res.Attempted++
		if err := r.Provider.Unhide(ctx, name); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// The call was cut short by cancellation, not by the backend.
				res.Attempted--
				res.Interrupted = true
				break
			}
			res.Failed++
			res.Failures = append(res.Failures, Failure{Name: name, Err: err})
			logger.Error("Failed to unhide",
				zap.String("bucket", r.Bucket),
				zap.String("name", name),
				zap.Error(err))
			r.writeResult(ctx, name, err)
			continue
		}

		res.Unhidden++
		logger.Debug("Unhidden", zap.String("name", name))
		r.writeResult(ctx, name, nil)
	}

	res.Duration = time.Since(start)
	if err := r.writeSummary(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Reconciler) writePlan(ctx context.Context, name string) error {
	if r.Writer == nil {
		return nil
	}
	return r.Writer.WritePlan(ctx, &output.PlanRecord{
		Name:    name,
		Command: r.Provider.UnhideCommand(name),
	})
}

// writeResult is best effort; a reporting failure must not affect the batch.
func (r *Reconciler) writeResult(ctx context.Context, name string, err error) {
	if r.Writer == nil {
		return
	}
	rec := &output.ResultRecord{Name: name, Status: output.StatusUnhidden}
	if err != nil {
		rec.Status = output.StatusFailed
		rec.Error = err.Error()
	}
	_ = r.Writer.WriteResult(ctx, rec)
}

func (r *Reconciler) writeSummary(ctx context.Context, res *Result) error {
	if r.Writer == nil {
		return nil
	}
	return r.Writer.WriteSummary(ctx, &output.SummaryRecord{
		Bucket:        r.Bucket,
		Prefix:        r.Prefix,
		DryRun:        r.DryRun,
		Hidden:        res.Hidden,
		Attempted:     res.Attempted,
		Unhidden:      res.Unhidden,
		Failed:        res.Failed,
		Interrupted:   res.Interrupted,
		Duration:      res.Duration,
		DurationHuman: res.Duration.Round(time.Millisecond).String(),
	})
}
