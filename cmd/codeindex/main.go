package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeindex/internal/config"
	"codeindex/internal/indexer"
	"codeindex/internal/logging"
)

var logger *slog.Logger

const version = "0.5.0"

func main() {
	logger = logging.Default("codeindex")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "index":
		runIndex(os.Args[2:])

	case "watch":
		runWatch(os.Args[2:])

	case "stats":
		runStats(os.Args[2:])

	case "version":
		fmt.Printf("codeindex v%s\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		logger.Error("unknown command", "command", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// buildConfig resolves an indexer.Config from the environment, applying
// any flag overrides the caller already parsed.
func buildConfig(absPath string, provider, model string) *indexer.Config {
	pc := config.LoadPipelineConfigFromEnv()
	if provider != "" {
		pc.EmbeddingProvider = provider
	}
	if model != "" {
		pc.EmbeddingModel = model
	}

	cfg := &indexer.Config{
		DBType:            pc.DBType,
		DSN:               pc.DSN,
		EmbeddingProvider: pc.EmbeddingProvider,
		EmbeddingModel:    pc.EmbeddingModel,
		OllamaURL:         pc.OllamaURL,
		Dimensions:        pc.Dimensions,
		BatchSize:         pc.BatchSize,
		MaxWorkers:        pc.MaxWorkers,
	}
	if pc.DBPath != "" {
		cfg.DBPath = pc.DBPath
	}
	cfg.IgnorePatterns = indexer.LoadGitignore(absPath)
	return cfg
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	force := fs.Bool("force", false, "Force full reindex")
	fs.BoolVar(force, "f", false, "Short for --force")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	fs.BoolVar(verbose, "v", false, "Short for --verbose")
	jsonOutput := fs.Bool("json", false, "Output results as JSON")
	provider := fs.String("provider", "", "Embedding provider (ollama, lmstudio, off)")
	model := fs.String("model", "", "Embedding model (provider-specific default if empty)")
	fs.Parse(args)

	absPath := resolvePath(fs.Args())
	cfg := buildConfig(absPath, *provider, *model)

	if *verbose {
		logger.Info("indexing starting",
			"path", absPath,
			"db_type", cfg.DBType,
			"embedding_provider", cfg.EmbeddingProvider,
			"embedding_model", cfg.EmbeddingModel)
	}

	idx, err := indexer.New(absPath, cfg)
	if err != nil {
		logger.Error("opening indexer failed", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	result, err := idx.Index(context.Background(), indexer.IndexOptions{Force: *force, Verbose: *verbose})
	if err != nil {
		logger.Error("indexing failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(result)
		return
	}

	switch result.ChangeType {
	case "none":
		logger.Info("no changes detected, index is up to date")
	default:
		logger.Info(result.ChangeType+" index complete",
			"files_processed", result.FilesProcessed,
			"chunks_created", result.ChunksCreated,
			"chunks_embedded", result.ChunksEmbedded,
			"total_chunks", result.TotalChunks,
			"duration", result.Duration.Round(time.Millisecond))
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Delay after the last change before reindexing")
	provider := fs.String("provider", "", "Embedding provider (ollama, lmstudio, off)")
	model := fs.String("model", "", "Embedding model (provider-specific default if empty)")
	metricsAddr := fs.String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090); disabled if empty")
	fs.Parse(args)

	absPath := resolvePath(fs.Args())
	cfg := buildConfig(absPath, *provider, *model)

	idx, err := indexer.New(absPath, cfg)
	if err != nil {
		logger.Error("opening indexer failed", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	if *metricsAddr != "" {
		serveMetrics(*metricsAddr, idx)
	}

	ctx := context.Background()
	if _, err := idx.Index(ctx, indexer.IndexOptions{}); err != nil {
		logger.Error("initial index failed", "error", err)
		os.Exit(1)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("creating file watcher failed", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if err := addDirsRecursive(watcher, absPath); err != nil {
		logger.Error("watching directories failed", "error", err)
		os.Exit(1)
	}

	logger.Info("watching for changes", "path", absPath)

	var timer *time.Timer
	reindex := func() {
		result, err := idx.Index(ctx, indexer.IndexOptions{})
		if err != nil {
			logger.Error("reindex failed", "error", err)
			return
		}
		if result.ChangeType != "none" {
			logger.Info("reindexed",
				"change_type", result.ChangeType,
				"files_processed", result.FilesProcessed,
				"chunks_created", result.ChunksCreated)
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(*debounce, reindex)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// addDirsRecursive registers every directory under root with watcher,
// pruning the same directories Index itself never descends into.
func addDirsRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "node_modules", "vendor", ".codetect":
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// serveMetrics starts a background HTTP server exposing idx's Prometheus
// registry at /metrics on addr. It never blocks the caller; a server error
// is only logged, since a scrape endpoint going down shouldn't stop watch
// mode from reindexing.
func serveMetrics(addr string, idx *indexer.Indexer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(idx.Metrics().Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server error", "error", err)
		}
	}()
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output stats as JSON")
	fs.Parse(args)

	absPath := resolvePath(fs.Args())
	cfg := buildConfig(absPath, "off", "")

	idx, err := indexer.New(absPath, cfg)
	if err != nil {
		logger.Error("opening indexer failed", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	stats, err := idx.Stats()
	if err != nil {
		logger.Error("getting stats failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(stats)
		return
	}

	fmt.Printf("Index Statistics\n")
	fmt.Printf("================\n")
	fmt.Printf("Files:  %d\n", stats.FileCount)
	fmt.Printf("Chunks: %d\n", stats.TotalChunks)
}

func resolvePath(args []string) string {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Error("invalid path", "error", err)
		os.Exit(1)
	}
	return absPath
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("encoding JSON failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`codeindex - semantic code index builder

Usage:
  codeindex index [options] [path]   Index a repository
  codeindex watch [options] [path]   Index, then reindex on file changes
  codeindex stats [options] [path]   Show index statistics
  codeindex version                 Print version
  codeindex help                    Show this help

Index Options:
  --force, -f      Force full reindex (default: incremental)
  --verbose, -v    Enable verbose output
  --json           Output results as JSON
  --provider       Embedding provider (ollama, lmstudio, off)
  --model          Embedding model (provider-specific default if empty)

Watch Options:
  --debounce       Delay after the last change before reindexing (default: 500ms)
  --provider       Embedding provider (ollama, lmstudio, off)
  --model          Embedding model (provider-specific default if empty)
  --metrics-addr   Address to serve Prometheus metrics on (e.g. :9090); disabled if empty

Stats Options:
  --json           Output stats as JSON

Environment Variables:
  CODETECT_DB_TYPE              Database type: sqlite (default), postgres
  CODETECT_DB_DSN               PostgreSQL connection string
  CODETECT_DB_PATH              SQLite database path override
  CODETECT_VECTOR_DIMENSIONS    Vector dimensions [default: 768]
  CODETECT_EMBEDDING_PROVIDER   Provider (ollama, lmstudio, off) [default: ollama]
  CODETECT_EMBEDDING_MODEL      Model override
  CODETECT_OLLAMA_URL           Ollama URL [default: http://localhost:11434]
  CODETECT_BATCH_SIZE           Files buffered per pipeline stage batch [default: 32]
  CODETECT_MAX_WORKERS          Worker count per stage pool [default: 4]
  LOG_LEVEL                     Log level (debug, info, warn, error) [default: info]
  LOG_FORMAT                    Output format (text, json) [default: text]

Database:
  Default: SQLite stored in .codetect/ relative to the indexed path.
  PostgreSQL: set CODETECT_DB_TYPE=postgres and CODETECT_DB_DSN.`)
}
