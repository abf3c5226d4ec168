// Package bulk narrates many events in parallel. Each job gets its own engine
// so results depend only on the base seed and the job's position.
package bulk

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// Factory builds a fresh engine for seed.
type Factory func(seed uint64) (*orchestrator.Engine, error)

// Job is one event to narrate.
type Job struct {
	Event schema.Event
	World schema.World
}

// Result is the outcome of one job. Err is only set when Options.KeepGoing
// is true; otherwise the first error aborts the run.
type Result struct {
	Index   int
	Seed    uint64
	Text    string
	Rule    string
	Retries int
	Err     error
}

// Options tunes a run.
type Options struct {
	BaseSeed  uint64
	Workers   int
	KeepGoing bool
	Logger    *zap.Logger
}

// Run narrates jobs with at most opts.Workers in flight. Job i runs on an
// engine seeded with BaseSeed+i. Results come back in job order.
func Run(ctx context.Context, factory Factory, jobs []Job, opts Options) ([]Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("bulk")

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seed := opts.BaseSeed + uint64(i)
			results[i] = Result{Index: i, Seed: seed}

			e, err := factory(seed)
			if err != nil {
				return fmt.Errorf("job %d: build engine: %w", i, err)
			}
			res, err := e.NarrateDetailed(job.Event, job.World)
			if err != nil {
				if opts.KeepGoing {
					log.Debug("job failed", zap.Int("job", i), zap.Error(err))
					results[i].Err = err
					return nil
				}
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i].Text = res.Text
			results[i].Rule = res.Rule
			results[i].Retries = res.Retries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("bulk run finished", zap.Int("jobs", len(jobs)), zap.Int("workers", workers))
	return results, nil
}
