package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const defaultBatchParallelism = 4

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Result Result
	Err    error
}

// AnalyzeBatch analyzes independent requests in parallel. Per-request failures
// are reported on their item; only context cancellation fails the batch.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []Request, parallelism int) ([]BatchItem, error) {
	if parallelism <= 0 {
		parallelism = defaultBatchParallelism
	}
	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := e.Analyze(gctx, req)
			items[i] = BatchItem{Result: result, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
