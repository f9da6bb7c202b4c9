package stage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"codeindex/internal/model"
	"codeindex/internal/store"
)

// RetryOptions bounds the exponential backoff the Store stage applies to
// a batch write before surfacing the failure.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxRetries   int
}

// DefaultRetryOptions matches the contract's own defaults: 3 attempts
// starting at 100ms.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{InitialDelay: 100 * time.Millisecond, MaxRetries: 3}
}

// VectorStore is the subset of store.VectorStore the Store stage needs.
type VectorStore interface {
	UpsertFile(f model.File) (int64, error)
	InsertChunksBatch(chunks []model.Chunk) ([]int64, error)
	InsertEmbeddingsBatch(records []model.EmbeddingRecord) (map[int64]model.EmbeddingStatus, error)
}

var _ VectorStore = (*store.VectorStore)(nil)

// RunStore starts workers writing embedded files to vs, buffering up to
// dbBatchSize files per write and retrying a failed batch with
// exponential backoff before reporting it as failed on the returned
// channel.
func RunStore(ctx context.Context, in <-chan EmbeddedFile, workers, dbBatchSize int, vs VectorStore, provider, modelName string, retry RetryOptions, counters *Counters, logger *slog.Logger) <-chan StoreResult {
	out := make(chan StoreResult)
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runBatched(ctx, in, dbBatchSize, func(batch []EmbeddedFile) {
				result := storeBatch(batch, vs, provider, modelName, retry, counters, logger)
				select {
				case out <- result:
				case <-ctx.Done():
				}
			})
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func storeBatch(batch []EmbeddedFile, vs VectorStore, provider, modelName string, retry RetryOptions, counters *Counters, logger *slog.Logger) StoreResult {
	var result StoreResult

	op := func() error {
		result = StoreResult{}
		for _, ef := range batch {
			if ef.Err != nil {
				continue
			}

			fileID, err := vs.UpsertFile(ef.File)
			if err != nil {
				return err
			}
			result.FilesStored++

			if len(ef.Chunks) == 0 {
				continue
			}

			chunks := make([]model.Chunk, len(ef.Chunks))
			for i, ec := range ef.Chunks {
				c := ec.Chunk
				c.FileID = fileID
				chunks[i] = c
			}

			ids, err := vs.InsertChunksBatch(chunks)
			if err != nil {
				return err
			}
			result.ChunksStored += len(ids)
			atomic.AddInt64(&counters.ChunksStored, int64(len(ids)))

			var records []model.EmbeddingRecord
			for i, ec := range ef.Chunks {
				if ec.Vector == nil {
					continue
				}
				records = append(records, model.EmbeddingRecord{
					ChunkID: ids[i], Provider: provider, Model: modelName,
					Dimensions: len(ec.Vector), Vector: ec.Vector, Status: model.EmbeddingSuccess,
				})
			}
			if len(records) > 0 {
				if _, err := vs.InsertEmbeddingsBatch(records); err != nil {
					return err
				}
				result.EmbeddingsStored += len(records)
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retry.InitialDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	bounded := backoff.WithMaxRetries(b, uint64(maxInt(retry.MaxRetries-1, 0)))

	if err := backoff.Retry(op, bounded); err != nil {
		logger.Error("store batch failed", "error", err, "files", len(batch))
		result.Err = err
	}
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
