// Package bulk runs independent generation tasks in parallel with a capped
// worker count.
package bulk

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task produces one result. Tasks must be independent of each other.
type Task[T any] func(ctx context.Context) (T, error)

// RunAll executes every task exactly once using min(concurrency, len(tasks))
// workers pulling indices from a shared cursor. Failed tasks are logged and
// omitted; surviving results keep their original task order. onSuccess, if
// non-nil, runs once per successful task with the task's index.
//
// There are no retries at this layer; tasks wrap their own retry policy.
func RunAll[T any](
	ctx context.Context,
	logger *zap.Logger,
	tasks []Task[T],
	concurrency int,
	onSuccess func(index int),
) []T {
	if len(tasks) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	type slot struct {
		value T
		ok    bool
	}
	slots := make([]slot, len(tasks))

	var cursor atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(tasks) {
					return
				}
				if ctx.Err() != nil {
					logger.Debug("Bulk run cancelled", zap.Int("index", idx))
					return
				}

				value, err := tasks[idx](ctx)
				if err != nil {
					logger.Warn("Bulk task failed",
						zap.Int("index", idx),
						zap.Error(err))
					continue
				}

				slots[idx] = slot{value: value, ok: true}
				if onSuccess != nil {
					onSuccess(idx)
				}
			}
		}()
	}

	wg.Wait()

	results := make([]T, 0, len(tasks))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.value)
		}
	}
	return results
}
