// Package batch drives geocode resolution over a loaded workbook. Rows are
// resolved serially on one worker goroutine: the upstream rate limits make a
// single in-flight request the natural concurrency level, and ordered
// progress keeps the UI simple.
package batch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/place"
	"github.com/sells-group/placemap/pkg/geocode"
)

// Result is one row's resolution outcome.
type Result struct {
	Index  int
	Record place.Record
	Err    error
}

// Summary counts outcomes over a run.
type Summary struct {
	Total     int
	Resolved  int
	Unmatched int
	Failed    int
}

// Runner resolves records against a geocode resolver.
type Runner struct {
	resolver *geocode.Resolver
}

// NewRunner builds a Runner.
func NewRunner(resolver *geocode.Resolver) *Runner {
	return &Runner{resolver: resolver}
}

// Run resolves records one at a time, emitting a Result per row. The channel
// closes when every row is processed or the context is cancelled; a
// cancellation surfaces as the final Result's Err.
func (r *Runner) Run(ctx context.Context, records []place.Record) <-chan Result {
	out := make(chan Result)

	go func() {
		defer close(out)
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				out <- Result{Index: i, Record: rec, Err: eris.Wrap(err, "batch: cancelled")}
				return
			}

			res, err := r.resolver.Geocode(ctx, rec.RawAddress)
			if err != nil {
				out <- Result{Index: i, Record: rec, Err: err}
				continue
			}
			if res.Matched {
				rec.Longitude = res.Longitude
				rec.Latitude = res.Latitude
				rec.ResolvedAddress = res.Address
				rec.Resolved = true
			}
			out <- Result{Index: i, Record: rec}
		}
	}()

	return out
}

// RunAll consumes a full run, returning the updated records and a summary.
// Row-level failures are counted, not fatal; only cancellation aborts early.
func (r *Runner) RunAll(ctx context.Context, records []place.Record) ([]place.Record, Summary, error) {
	updated := make([]place.Record, len(records))
	copy(updated, records)

	sum := Summary{Total: len(records)}
	for res := range r.Run(ctx, records) {
		if res.Err != nil {
			if ctx.Err() != nil {
				return updated, sum, res.Err
			}
			sum.Failed++
			zap.L().Warn("batch: row failed",
				zap.Int("row", res.Index),
				zap.String("address", res.Record.RawAddress),
				zap.Error(res.Err))
			continue
		}
		updated[res.Index] = res.Record
		if res.Record.Resolved {
			sum.Resolved++
		} else {
			sum.Unmatched++
		}
	}

	zap.L().Info("batch: run complete",
		zap.Int("total", sum.Total),
		zap.Int("resolved", sum.Resolved),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("failed", sum.Failed))
	return updated, sum, nil
}
