// Package batch runs a per-item operation over a large collection with
// dynamic batch sizing and failure isolation, in a shape that fits
// embedding requests, file processing and store inserts alike.
package batch

import (
	"context"
	"time"
)

// Outcome classifies how a single item fared within its batch.
type Outcome int

const (
	// Processed means the item succeeded.
	Processed Outcome = iota
	// Failed means the item did not succeed but is worth retrying (in a
	// smaller batch, or by the caller later).
	Failed
	// PermanentFailure means retrying this item would not help.
	PermanentFailure
)

// ItemResult pairs one input item with its outcome.
type ItemResult[T any] struct {
	Item    T
	Outcome Outcome
	Err     error
}

// Operation processes one batch and returns a result per item, in the same
// order as the input slice.
type Operation[T any] func(ctx context.Context, items []T) []ItemResult[T]

// Options configures the dynamic batch-sizing algorithm.
type Options struct {
	InitialBatchSize int
	MaxBatchSize     int
	// FastThreshold is the elapsed-time ceiling under which a batch with no
	// permanent failures causes the next batch size to double.
	FastThreshold time.Duration
}

// DefaultOptions starts at 32 items a batch, grows to at most 256, and
// treats a batch that finishes under 2s as fast.
func DefaultOptions() Options {
	return Options{
		InitialBatchSize: 32,
		MaxBatchSize:     256,
		FastThreshold:    2 * time.Second,
	}
}

// Stats reports the processor's aggregate counters across a full run.
type Stats struct {
	TotalAttempted         int
	TotalProcessed         int
	TotalFailed            int
	TotalPermanentFailures int
	BatchCount             int
}

// Run executes op over items, growing batch size on fast clean batches and
// splitting a batch in half (down to a single item) whenever it contains a
// retryable failure. Permanent failures are recorded, never retried.
// Cancellation via ctx stops the run between batches; items not yet
// attempted are simply absent from the results and from TotalAttempted.
func Run[T any](ctx context.Context, items []T, op Operation[T], opts Options) ([]ItemResult[T], Stats) {
	if opts.InitialBatchSize <= 0 {
		opts.InitialBatchSize = 32
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = opts.InitialBatchSize
	}

	var results []ItemResult[T]
	var stats Stats

	batchSize := opts.InitialBatchSize
	for start := 0; start < len(items); {
		if ctx.Err() != nil {
			break
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		elapsed, batchResults := runBatch(ctx, batch, op, opts, &stats)
		results = append(results, batchResults...)

		anyRetryable := false
		anyPermanent := false
		for _, r := range batchResults {
			switch r.Outcome {
			case Failed:
				anyRetryable = true
			case PermanentFailure:
				anyPermanent = true
			}
		}

		if anyRetryable {
			// A batch-level split already retried the failures inside
			// runBatch; nothing left to do but keep the batch size steady.
		} else if elapsed < opts.FastThreshold && !anyPermanent && batchSize < opts.MaxBatchSize {
			batchSize *= 2
			if batchSize > opts.MaxBatchSize {
				batchSize = opts.MaxBatchSize
			}
		}

		start = end
	}

	return results, stats
}

// runBatch processes one batch, recursively splitting in half whenever a
// retryable failure appears, down to single-item batches. Permanent
// failures never trigger a split.
func runBatch[T any](ctx context.Context, items []T, op Operation[T], opts Options, stats *Stats) (time.Duration, []ItemResult[T]) {
	stats.BatchCount++
	stats.TotalAttempted += len(items)

	begin := time.Now()
	out := op(ctx, items)
	elapsed := time.Since(begin)

	hasRetryable := false
	for _, r := range out {
		switch r.Outcome {
		case Processed:
			stats.TotalProcessed++
		case PermanentFailure:
			stats.TotalPermanentFailures++
		case Failed:
			hasRetryable = true
		}
	}

	if !hasRetryable || len(items) <= 1 {
		for _, r := range out {
			if r.Outcome == Failed {
				stats.TotalFailed++
			}
		}
		return elapsed, out
	}

	// Undo the counters this attempt contributed; the split retries charge
	// their own attempts, and a clean half should not double-count a
	// Processed item that happened to share a batch with a failure.
	for _, r := range out {
		switch r.Outcome {
		case Processed:
			stats.TotalProcessed--
		case PermanentFailure:
			stats.TotalPermanentFailures--
		}
	}
	stats.TotalAttempted -= len(items)
	stats.BatchCount--

	mid := len(items) / 2
	_, leftResults := runBatch(ctx, items[:mid], op, opts, stats)
	_, rightResults := runBatch(ctx, items[mid:], op, opts, stats)

	return elapsed, append(leftResults, rightResults...)
}
