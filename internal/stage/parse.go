package stage

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"codeindex/internal/hash"
	"codeindex/internal/model"
	"codeindex/internal/parser"
	"codeindex/internal/splitter"
)

// RunParse starts workers parsing workers consuming paths from in and
// producing one ParseResult per file (skipping files it sniffs as
// binary) onto out, closing out once every worker has drained in.
func RunParse(ctx context.Context, in <-chan string, workers, batchSize int, registry *parser.Registry, splitOpts splitter.Options, counters *Counters, logger *slog.Logger) <-chan ParseResult {
	out := make(chan ParseResult)
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				runBatched(gctx, in, batchSize, func(batch []string) {
					for _, path := range batch {
						parseOne(gctx, path, registry, splitOpts, counters, logger, out)
					}
				})
				return nil
			})
			_ = g.Wait()
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func parseOne(ctx context.Context, path string, registry *parser.Registry, splitOpts splitter.Options, counters *Counters, logger *slog.Logger, out chan<- ParseResult) {
	content, err := os.ReadFile(path)
	if err != nil {
		atomic.AddInt64(&counters.FilesFailed, 1)
		logger.Warn("failed to read file", "path", path, "error", err)
		return
	}

	if looksBinary(content) {
		atomic.AddInt64(&counters.FilesSkipped, 1)
		logger.Debug("skipped", "path", path, "reason", "binary content")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		atomic.AddInt64(&counters.FilesFailed, 1)
		logger.Warn("failed to stat file", "path", path, "error", err)
		return
	}

	lang := parser.LanguageForPath(path)
	chunks, err := registry.ParseFile(ctx, path, content, splitOpts)
	if err != nil {
		atomic.AddInt64(&counters.FilesFailed, 1)
		logger.Warn("parse failed", "path", path, "error", err)
		return
	}

	file := model.File{
		Path:        path,
		MTime:       info.ModTime().Unix(),
		SizeBytes:   info.Size(),
		Language:    lang,
		ContentHash: hash.Hash(string(content)),
	}

	atomic.AddInt64(&counters.FilesDiscovered, 1)
	atomic.AddInt64(&counters.ChunksCreated, int64(len(chunks)))

	select {
	case out <- ParseResult{Path: path, File: file, Chunks: chunks}:
	case <-ctx.Done():
	}
}

// looksBinary reports whether the first 512 bytes of content contain a
// NUL byte, the same heuristic git itself uses to decide whether a file
// is text.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	return bytes.IndexByte(content[:n], 0) != -1
}
