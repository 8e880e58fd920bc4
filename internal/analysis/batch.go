package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// DefaultBatchConcurrency bounds RunBatch when limit is not positive.
const DefaultBatchConcurrency = 4

// Job is one analysis in a batch.
type Job struct {
	Name   string
	Layer  *spatial.Layer
	Config Config
}

// JobResult pairs a job with its report or error.
type JobResult struct {
	Name   string
	Report *Report
	Err    error
}

// RunBatch runs jobs concurrently, at most limit at a time. Results keep the
// order of jobs. A failed job records its error and does not stop the others;
// only cancellation of ctx ends the batch early.
func RunBatch(ctx context.Context, jobs []Job, limit int) ([]JobResult, error) {
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	results := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			results[i].Name = job.Name
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			rep, err := Run(gctx, job.Layer, job.Config)
			if err != nil {
				zap.L().Warn("analysis: batch job failed", zap.String("job", job.Name), zap.Error(err))
				results[i].Err = err
				return nil // don't fail the group
			}
			results[i].Report = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "analysis: batch")
	}
	return results, nil
}
