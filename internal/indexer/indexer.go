// Package indexer wires discovery, parsing, embedding, and storage into
// one coordinator: point it at a repository and it keeps a .codetect
// directory next to it in sync with the repository's current content.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"

	"codeindex/internal/chunkdiff"
	"codeindex/internal/db"
	"codeindex/internal/embedding"
	"codeindex/internal/embedservice"
	"codeindex/internal/logging"
	"codeindex/internal/metrics"
	"codeindex/internal/model"
	"codeindex/internal/parser"
	"codeindex/internal/splitter"
	"codeindex/internal/stage"
	"codeindex/internal/store"
)

// metadataDirName is the directory this package keeps alongside a
// repository for its database, cache, and lock file.
const metadataDirName = ".codetect"

// Config controls how an Indexer discovers, parses, and embeds a
// repository's files.
type Config struct {
	DBType            string
	DBPath            string
	DSN               string
	EmbeddingProvider string
	EmbeddingModel    string
	OllamaURL         string
	Dimensions        int
	BatchSize         int
	MaxWorkers        int
	IgnorePatterns    []string
}

// DefaultConfig returns the configuration a fresh repository is indexed
// under when nothing overrides it: SQLite storage, Ollama embeddings
// with nomic-embed-text at 768 dimensions.
func DefaultConfig() Config {
	return Config{
		DBType:            "sqlite",
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
		Dimensions:        768,
		BatchSize:         32,
		MaxWorkers:        4,
	}
}

// IndexOptions controls one call to Index.
type IndexOptions struct {
	// Force reprocesses every discovered file, ignoring change detection.
	Force bool
	// Verbose asks the caller's logger (not owned here) to log more; kept
	// for parity with the CLI's own flag, consulted by callers that pass
	// their own slog handler level rather than by this package directly.
	Verbose bool
}

// IndexingResult reports what one Index call did.
type IndexingResult struct {
	ChangeType     string // "full", "incremental", or "none"
	FilesProcessed int
	FilesDeleted   int
	ChunksCreated  int
	ChunksEmbedded int
	CacheHits      int
	Duration       time.Duration
	Status         string // alias of ChangeType, for callers keying on outcome rather than diff shape
	TotalChunks    int    // chunk count on record after this run
	DurationMs     int64
	RunID          string // correlation id shared by every log line this run emitted
}

// Stats reports the current size of the index.
type Stats struct {
	TotalChunks int
	FileCount   int
}

// Indexer coordinates one repository's .codetect directory: its database,
// embedding cache, and the parse/embed/store pipeline that keeps them
// current.
type Indexer struct {
	repoPath    string
	metaDir     string
	cfg         *Config
	database    db.DB
	dialect     db.Dialect
	vectorStore *store.VectorStore
	cache       *embedding.EmbeddingCache
	embedSvc    *embedservice.Service
	registry    *parser.Registry
	splitOpts   splitter.Options
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// New opens or creates the .codetect directory under repoPath and returns
// an Indexer ready to run against it.
func New(repoPath string, cfg *Config) (*Indexer, error) {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}

	metaDir := filepath.Join(repoPath, metadataDirName)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return nil, err
	}

	dbCfg := db.DefaultConfig(filepath.Join(metaDir, "index.db"))
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	if cfg.DBType == "postgres" {
		dbCfg.Driver = db.DriverPostgres
		dbCfg.Path = cfg.DSN
	}

	database, err := db.Open(dbCfg)
	if err != nil {
		return nil, err
	}

	vs, err := store.Open(database, dbCfg.Dialect(), metaDir)
	if err != nil {
		database.Close()
		return nil, err
	}

	idx := &Indexer{
		repoPath:    repoPath,
		metaDir:     metaDir,
		cfg:         cfg,
		database:    database,
		dialect:     dbCfg.Dialect(),
		vectorStore: vs,
		registry:    parser.NewRegistry(),
		splitOpts:   splitter.DefaultOptions(),
		logger:      logging.Default("indexer"),
		metrics:     metrics.New(),
	}

	if cfg.EmbeddingProvider != "" && cfg.EmbeddingProvider != "off" {
		cache, err := embedding.NewEmbeddingCache(database, idx.dialect, cfg.Dimensions, cfg.EmbeddingModel)
		if err != nil {
			database.Close()
			return nil, err
		}
		idx.cache = cache.WithMetrics(idx.metrics)

		embedder := embedding.NewProvider(cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.Dimensions)
		if cfg.EmbeddingProvider == "ollama" && cfg.OllamaURL != "" {
			opts := []embedding.LMStudioOption{embedding.WithLMStudioBaseURL(cfg.OllamaURL)}
			if cfg.EmbeddingModel != "" {
				opts = append(opts, embedding.WithLMStudioModel(cfg.EmbeddingModel))
			}
			if cfg.Dimensions > 0 {
				opts = append(opts, embedding.WithLMStudioDimensions(cfg.Dimensions))
			}
			embedder = embedding.NewLMStudioClient(opts...)
		}
		if embedder.Available() {
			idx.embedSvc = embedservice.New(vs, embedder, embedservice.DefaultRetryOptions(), embedservice.DefaultBreakerOptions(), store.FragmentThreshold).WithMetrics(idx.metrics)
		}
	}

	return idx, nil
}

// RepoPath returns the repository root this Indexer was opened against.
func (idx *Indexer) RepoPath() string { return idx.repoPath }

// Metrics returns the Prometheus registry backing this Indexer's
// instrumentation, for a caller that wants to serve it over /metrics.
func (idx *Indexer) Metrics() *metrics.Metrics { return idx.metrics }

// Close releases the database connection and its lock file.
func (idx *Indexer) Close() error {
	return idx.database.Close()
}

// Stats reports how many files and chunks are currently on record.
func (idx *Indexer) Stats() (Stats, error) {
	counts, err := idx.vectorStore.FragmentCounts()
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalChunks: counts["chunks"], FileCount: counts["files"]}, nil
}

// skipDirs is always pruned, regardless of gitignore.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, metadataDirName: true,
}

// discoverFiles walks repoPath, pruning skipDirs and anything gi matches,
// and returns every remaining regular file's absolute path.
func discoverFiles(repoPath string, gi *ignore.GitIgnore) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(repoPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(repoPath, p)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// changedPaths compares each discovered path's mtime and size against the
// File row on record, returning the subset that is new or modified.
func (idx *Indexer) changedPaths(paths []string) ([]string, error) {
	var changed []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		existing, found, err := idx.vectorStore.GetFileByPath(p)
		if err != nil {
			return nil, err
		}
		if !found || existing.MTime != info.ModTime().Unix() || existing.SizeBytes != info.Size() {
			changed = append(changed, p)
		}
	}
	return changed, nil
}

// Index discovers the repository's current files, determines which need
// reprocessing, and runs them through the parse/embed/store pipeline.
func (idx *Indexer) Index(ctx context.Context, opts IndexOptions) (IndexingResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := idx.logger.With("run_id", runID)

	patterns := idx.cfg.IgnorePatterns
	if len(patterns) == 0 {
		patterns = LoadGitignore(idx.repoPath)
	}
	gi := CompileGitignore(patterns)

	allPaths, err := discoverFiles(idx.repoPath, gi)
	if err != nil {
		logger.Error("discovering files failed", "error", err)
		return IndexingResult{}, err
	}

	existingCount, err := idx.vectorStore.FragmentCounts()
	if err != nil {
		return IndexingResult{}, err
	}
	firstRun := existingCount["files"] == 0

	var toProcess []string
	changeType := "none"

	switch {
	case opts.Force || firstRun:
		toProcess = allPaths
		changeType = "full"
	default:
		changed, cErr := idx.changedPaths(allPaths)
		if cErr != nil {
			return IndexingResult{}, cErr
		}
		if len(changed) == 0 {
			logger.Info("no changes detected")
			result := IndexingResult{ChangeType: "none", Status: "none", Duration: time.Since(start), RunID: runID}
			result.DurationMs = result.Duration.Milliseconds()
			stats, statErr := idx.Stats()
			if statErr == nil {
				result.TotalChunks = stats.TotalChunks
			}
			return result, nil
		}
		toProcess = changed
		changeType = "incremental"
	}

	logger.Info("pipeline starting", "change_type", changeType, "files", len(toProcess))

	result, err := idx.runPipeline(ctx, toProcess, logger)
	if err != nil {
		logger.Error("pipeline failed", "error", err)
		return IndexingResult{}, err
	}
	result.ChangeType = changeType
	result.Status = changeType
	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()
	result.RunID = runID
	idx.metrics.RecordChunksCreated(result.ChunksCreated)
	idx.metrics.RecordFilesProcessed(changeType, result.FilesProcessed)

	stats, err := idx.Stats()
	if err == nil {
		result.TotalChunks = stats.TotalChunks
	}
	logger.Info("pipeline complete",
		"files_processed", result.FilesProcessed,
		"chunks_created", result.ChunksCreated,
		"chunks_embedded", result.ChunksEmbedded,
		"duration", result.Duration)
	return result, nil
}

// runPipeline feeds paths through RunParse -> RunEmbed -> RunStore and
// aggregates the counters the caller reports back.
func (idx *Indexer) runPipeline(ctx context.Context, paths []string, logger *slog.Logger) (IndexingResult, error) {
	counters := &stage.Counters{}

	pathsCh := make(chan string, len(paths))
	for _, p := range paths {
		pathsCh <- p
	}
	close(pathsCh)

	parsed := stage.RunParse(ctx, pathsCh, idx.cfg.MaxWorkers, idx.cfg.BatchSize, idx.registry, idx.splitOpts, counters, logger)
	diffed := idx.applyChunkDiff(ctx, parsed, logger)
	embedded := stage.RunEmbed(ctx, diffed, idx.cfg.MaxWorkers, idx.cfg.BatchSize, idx.embedSvc, idx.cache, counters, logger)
	stored := stage.RunStore(ctx, embedded, idx.cfg.MaxWorkers, idx.cfg.BatchSize, idx.vectorStore, idx.cfg.EmbeddingProvider, idx.cfg.EmbeddingModel, stage.DefaultRetryOptions(), counters, logger)

	var filesProcessed int
	var firstErr error
	for r := range stored {
		filesProcessed += r.FilesStored
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
		}
	}
	if firstErr != nil {
		return IndexingResult{}, firstErr
	}

	return IndexingResult{
		FilesProcessed: filesProcessed,
		ChunksCreated:  int(counters.ChunksCreated),
		ChunksEmbedded: int(counters.ChunksEmbedded),
	}, nil
}

// applyChunkDiff reconciles each parsed file's fresh chunks against the
// chunks already on record for that path, forwarding only the Added and
// Modified sets so Store never re-inserts an Unchanged chunk. Embeddings
// superseded by a Modified or Deleted chunk are invalidated so a stale
// vector never answers a query for content that no longer exists.
func (idx *Indexer) applyChunkDiff(ctx context.Context, in <-chan stage.ParseResult, logger *slog.Logger) <-chan stage.ParseResult {
	out := make(chan stage.ParseResult)
	go func() {
		defer close(out)
		for pr := range in {
			if pr.Err == nil && len(pr.Chunks) > 0 {
				existing, err := idx.vectorStore.GetChunksByFilePath(pr.Path)
				if err != nil {
					logger.Warn("loading existing chunks failed", "path", pr.Path, "error", err)
				} else if len(existing) > 0 {
					d := chunkdiff.Diff(pr.Chunks, existing)
					pr.Chunks = append(append([]model.Chunk{}, d.Added...), d.Modified...)

					// Every chunk on record that is not Unchanged is stale: the
					// Deleted ones and the ones a Modified chunk superseded.
					kept := make(map[int64]bool, len(d.Unchanged))
					for _, c := range d.Unchanged {
						kept[c.ID] = true
					}
					var stale []int64
					for _, c := range existing {
						if c.ID != 0 && !kept[c.ID] {
							stale = append(stale, c.ID)
						}
					}
					if len(stale) > 0 {
						if err := idx.vectorStore.DeleteEmbeddingsForChunks(stale, idx.cfg.EmbeddingProvider, idx.cfg.EmbeddingModel); err != nil {
							logger.Warn("invalidating stale embeddings failed", "path", pr.Path, "error", err)
						}
					}
				}
			}
			select {
			case out <- pr:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// LoadGitignore reads dir's .gitignore, returning its patterns with
// comments and blank lines removed. A missing file yields nil.
func LoadGitignore(dir string) []string {
	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	return parseGitignore(string(content))
}

// parseGitignore splits raw .gitignore text into patterns, trimming
// surrounding whitespace and dropping comment and blank lines.
func parseGitignore(content string) []string {
	var patterns []string
	content = strings.ReplaceAll(content, "\r\n", "\n")
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, trimmed)
	}
	return patterns
}

// CompileGitignore compiles patterns into a matcher, or nil if there are
// none.
func CompileGitignore(patterns []string) *ignore.GitIgnore {
	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}
