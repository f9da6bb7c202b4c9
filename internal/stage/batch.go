package stage

import "context"

// runBatched reads items from in, grouping them into slices of up to
// batchSize, calling process on each full batch as soon as it fills and
// on whatever remains when in closes. Once ctx is cancelled it stops
// starting new batches but keeps draining in (discarding what it reads)
// so an upstream sender never blocks on a worker that has given up.
func runBatched[T any](ctx context.Context, in <-chan T, batchSize int, process func([]T)) {
	if batchSize <= 0 {
		batchSize = 1
	}
	batch := make([]T, 0, batchSize)
	cancelled := false

	for {
		select {
		case item, ok := <-in:
			if !ok {
				if len(batch) > 0 && !cancelled {
					process(batch)
				}
				return
			}
			if cancelled {
				continue
			}
			batch = append(batch, item)
			if len(batch) >= batchSize {
				process(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			cancelled = true
		}
	}
}
