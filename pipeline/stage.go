package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocbct/fdkrecon/internal/logging"
)

// ErrStageRuntime wraps a runtime error raised by a stage while processing
// a projection (spec §7's "runtime errors" class).
var ErrStageRuntime = fmt.Errorf("stage runtime error")

// Stage is one unit of the pipeline (weighting, filtering, back-projection,
// ...). Start runs the stage's workers until its input queue is drained to
// End or ctx is cancelled; Close releases any per-device resources the
// stage allocated at construction (filter kernels, sub-volume buffers).
//
// A Stage owns its worker count and reports a single terminal error rather
// than silently returning on the first failure.
type Stage interface {
	Name() string
	Start(ctx context.Context) error
	Close() error
}

// Runner starts a sequence of Stages and tears them down in reverse
// construction order, per spec §4.5: "stages tear down in reverse-
// construction order on completion or on fatal error."
type Runner struct {
	stages []Stage
}

// NewRunner builds a Runner over stages in pipeline (upstream-to-
// downstream) order.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run starts every stage concurrently and blocks until all have returned.
// If any stage returns a non-nil error, Run cancels the shared context so
// sibling stages unblock from their queue Push/Take calls, then joins every
// stage. No End items are pushed on this error path; cancellation reaches
// the other stages only through the context.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstRr error
	)

	for _, stage := range r.stages {
		wg.Add(1)
		go func(s Stage) {
			defer wg.Done()
			if err := s.Start(ctx); err != nil {
				logging.Log.Error().Err(err).Str("stage", s.Name()).Msg("stage aborted")
				mu.Lock()
				if firstRr == nil {
					firstRr = fmt.Errorf("%s: %w: %w", s.Name(), ErrStageRuntime, err)
				}
				mu.Unlock()
				cancel()
			}
		}(stage)
	}

	wg.Wait()

	for i := len(r.stages) - 1; i >= 0; i-- {
		if err := r.stages[i].Close(); err != nil {
			logging.Log.Error().Err(err).Str("stage", r.stages[i].Name()).Msg("stage teardown failed")
		}
	}

	return firstRr
}
