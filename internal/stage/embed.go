package stage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"codeindex/internal/embedding"
	"codeindex/internal/embedservice"
)

// RunEmbed starts workers pairing each file's chunks with an embedding
// vector, consulting cache before ever calling the provider, and
// forwarding every file (embedded or not) so Store still persists its
// chunks. If svc is nil, embedding is skipped and every chunk passes
// through with a nil Vector.
func RunEmbed(ctx context.Context, in <-chan ParseResult, workers, batchSize int, svc *embedservice.Service, cache *embedding.EmbeddingCache, counters *Counters, logger *slog.Logger) <-chan EmbeddedFile {
	out := make(chan EmbeddedFile)
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runEmbedWorker(ctx, in, batchSize, svc, cache, counters, logger, out)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func runEmbedWorker(ctx context.Context, in <-chan ParseResult, batchSize int, svc *embedservice.Service, cache *embedding.EmbeddingCache, counters *Counters, logger *slog.Logger, out chan<- EmbeddedFile) {
	var pending []ParseResult
	chunkCount := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		emitEmbedded(ctx, pending, svc, cache, counters, logger, out)
		pending = pending[:0]
		chunkCount = 0
	}

	for pr := range in {
		if ctx.Err() != nil {
			continue
		}
		pending = append(pending, pr)
		chunkCount += len(pr.Chunks)
		if chunkCount >= batchSize {
			flush()
		}
	}
	flush()
}

func emitEmbedded(ctx context.Context, batch []ParseResult, svc *embedservice.Service, cache *embedding.EmbeddingCache, counters *Counters, logger *slog.Logger, out chan<- EmbeddedFile) {
	vectors := resolveVectors(ctx, batch, svc, cache, logger)

	for _, pr := range batch {
		ef := EmbeddedFile{File: pr.File, Err: pr.Err}
		for _, c := range pr.Chunks {
			v := vectors[c.ContentHash]
			if v != nil {
				atomic.AddInt64(&counters.ChunksEmbedded, 1)
			}
			ef.Chunks = append(ef.Chunks, EmbeddedChunk{Chunk: c, Vector: v})
		}
		select {
		case out <- ef:
		case <-ctx.Done():
		}
	}
}

// resolveVectors returns a vector per distinct content hash across batch,
// consulting cache first and calling the provider only for misses.
func resolveVectors(ctx context.Context, batch []ParseResult, svc *embedservice.Service, cache *embedding.EmbeddingCache, logger *slog.Logger) map[string][]float32 {
	vectors := make(map[string][]float32)
	if svc == nil || cache == nil {
		return vectors
	}

	var hashes []string
	codeByHash := make(map[string]string)
	for _, pr := range batch {
		for _, c := range pr.Chunks {
			if _, seen := codeByHash[c.ContentHash]; !seen {
				hashes = append(hashes, c.ContentHash)
				codeByHash[c.ContentHash] = c.Code
			}
		}
	}
	if len(hashes) == 0 {
		return vectors
	}

	cached, err := cache.GetBatch(hashes)
	if err != nil {
		logger.Warn("embedding cache lookup failed", "error", err)
		cached = nil
	}

	var missHashes []string
	for _, h := range hashes {
		if entry, ok := cached[h]; ok {
			vectors[h] = entry.Embedding
		} else {
			missHashes = append(missHashes, h)
		}
	}
	if len(missHashes) == 0 {
		return vectors
	}

	texts := make([]string, len(missHashes))
	for i, h := range missHashes {
		texts[i] = codeByHash[h]
	}

	out, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("embedding provider call failed", "error", err, "chunks", len(missHashes))
		return vectors
	}

	toCache := make(map[string][]float32, len(missHashes))
	for i, h := range missHashes {
		vectors[h] = out[i]
		toCache[h] = out[i]
	}
	if err := cache.PutBatch(toCache); err != nil {
		logger.Warn("embedding cache write failed", "error", err)
	}
	return vectors
}
