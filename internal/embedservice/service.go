// Package embedservice wires the embedding provider, the classifier, and
// the vector store into the pipeline an indexing run actually executes:
// filter out chunks that already have a usable embedding, batch the rest
// respecting the provider's own limits, retry transient failures with
// exponential backoff behind a circuit breaker, and persist whatever
// succeeds.
package embedservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"codeindex/internal/classify"
	"codeindex/internal/embedding"
	"codeindex/internal/metrics"
	"codeindex/internal/model"
)

// RetryOptions mirrors the exponential-backoff parameters the contract
// names explicitly.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
}

// DefaultRetryOptions starts at a 100ms delay, doubles it up to 10s, and
// retries at most 5 times after the first attempt.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{InitialDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second, MaxRetries: 5}
}

// BreakerOptions configures the circuit breaker guarding the provider.
type BreakerOptions struct {
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

// DefaultBreakerOptions opens the breaker after 5 consecutive transient
// failures and keeps it open for 30s before trying a half-open probe.
func DefaultBreakerOptions() BreakerOptions {
	return BreakerOptions{ConsecutiveFailures: 5, Cooldown: 30 * time.Second}
}

// VectorStore is the subset of internal/store.VectorStore the service
// needs; declared locally so tests can supply a fake.
type VectorStore interface {
	FilterExistingEmbeddings(chunkIDs []int64, provider, model string) ([]int64, error)
	GetChunksByIDs(ids []int64) ([]model.Chunk, error)
	InsertEmbeddingsBatch(records []model.EmbeddingRecord) (map[int64]model.EmbeddingStatus, error)
	DeleteEmbeddingsForChunks(chunkIDs []int64, provider, model string) error
	Optimize() error
}

// Stats reports the counts the contract requires plus a handful of sample
// errors for diagnostics.
type Stats struct {
	TotalGenerated    int
	TotalProcessed    int
	SuccessfulChunks  int
	FailedChunks      int
	PermanentFailures int
	RetryAttempts     int
	ErrorSamples      []string
}

// Service implements the embedding pipeline described above.
type Service struct {
	store    VectorStore
	embedder embedding.Embedder
	retry    RetryOptions
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics

	optimizeEvery int
	mu            sync.Mutex
	sinceOptimize int
}

// New builds a Service. optimizeEvery is how many EmbedChunks calls that
// still had chunks to embed after filtering pass between calls to
// store.Optimize(); 0 disables periodic optimization.
func New(store VectorStore, embedder embedding.Embedder, retry RetryOptions, breakerOpts BreakerOptions, optimizeEvery int) *Service {
	s := &Service{
		store:         store,
		embedder:      embedder,
		retry:         retry,
		optimizeEvery: optimizeEvery,
	}
	settings := gobreaker.Settings{
		Name:        "embedding-provider:" + embedder.ProviderID(),
		MaxRequests: 1,
		Timeout:     breakerOpts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerOpts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.metrics.SetCircuitBreakerState(embedder.ProviderID(), int(to))
		},
	}
	s.breaker = gobreaker.NewCircuitBreaker(settings)
	return s
}

// WithMetrics attaches Prometheus instrumentation to s, returning s for
// chaining. A nil m is safe and simply leaves metrics unattached.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// EmbedChunks runs the full pipeline for chunks: filter, batch, embed with
// retry/circuit-breaking, persist.
func (s *Service) EmbedChunks(ctx context.Context, chunks []model.Chunk, provider, modelName string, maxDocsPerBatch, maxTokensPerBatch, concurrency int) (Stats, error) {
	var stats Stats
	if len(chunks) == 0 {
		return stats, nil
	}

	ids := make([]int64, len(chunks))
	byID := make(map[int64]model.Chunk, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		byID[c.ID] = c
	}

	missing, err := s.store.FilterExistingEmbeddings(ids, provider, modelName)
	if err != nil {
		return stats, fmt.Errorf("filtering existing embeddings: %w", err)
	}
	stats.TotalGenerated = len(missing)
	if len(missing) == 0 {
		return stats, nil
	}

	pending := make([]model.Chunk, len(missing))
	for i, id := range missing {
		pending[i] = byID[id]
	}

	batches := groupBatches(pending, maxDocsPerBatch, maxTokensPerBatch)

	sem := make(chan struct{}, maxConcurrency(concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, b := range batches {
		b := b
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.embedBatch(ctx, b, provider, modelName)

			mu.Lock()
			defer mu.Unlock()
			stats.TotalProcessed += len(b)
			stats.SuccessfulChunks += result.succeeded
			stats.FailedChunks += result.failed
			stats.PermanentFailures += result.permanent
			stats.RetryAttempts += result.retries
			if result.sampleErr != "" && len(stats.ErrorSamples) < 10 {
				stats.ErrorSamples = append(stats.ErrorSamples, result.sampleErr)
			}
		}()
	}
	wg.Wait()

	s.mu.Lock()
	s.sinceOptimize++
	shouldOptimize := s.optimizeEvery > 0 && s.sinceOptimize >= s.optimizeEvery
	if shouldOptimize {
		s.sinceOptimize = 0
	}
	s.mu.Unlock()
	if shouldOptimize {
		go func() { _ = s.store.Optimize() }()
	}

	return stats, nil
}

type batchOutcome struct {
	succeeded, failed, permanent, retries int
	sampleErr                             string
}

// EmbedBatch runs texts through the retrying, circuit-breaking provider
// call without touching the store. It is the piece the Embed stage worker
// shares with EmbedChunks, for content that has no chunk id yet.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var outcome batchOutcome
	return s.embedWithRetry(ctx, texts, &outcome)
}

// embedBatch calls the provider for one batch, retrying transient errors
// with exponential backoff behind the shared circuit breaker, then
// persists whatever embeddings came back.
func (s *Service) embedBatch(ctx context.Context, batch []model.Chunk, provider, modelName string) batchOutcome {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Code
	}

	start := time.Now()
	var outcome batchOutcome
	vectors, err := s.embedWithRetry(ctx, texts, &outcome)
	if err != nil {
		kind := classify.Classify(ctx, err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			kind = classify.Transient
		}
		outcome.sampleErr = err.Error()
		if kind == classify.Permanent {
			outcome.permanent = len(batch)
		} else {
			outcome.failed = len(batch)
		}
		s.metrics.RecordBatchError(kind.String())
		return outcome
	}

	records := make([]model.EmbeddingRecord, len(batch))
	for i, c := range batch {
		records[i] = model.EmbeddingRecord{
			ChunkID: c.ID, Provider: provider, Model: modelName,
			Dimensions: len(vectors[i]), Vector: vectors[i], Status: model.EmbeddingSuccess,
		}
	}
	if _, err := s.store.InsertEmbeddingsBatch(records); err != nil {
		outcome.sampleErr = err.Error()
		outcome.failed = len(batch)
		s.metrics.RecordBatchError("store_failed")
		return outcome
	}
	outcome.succeeded = len(batch)
	s.metrics.ObserveBatch(provider, modelName, outcome.succeeded, time.Since(start))
	return outcome
}

// embedWithRetry calls the provider through the circuit breaker, retrying
// a Transient classification with exponential backoff up to MaxRetries.
// A Permanent classification stops retrying immediately via
// backoff.Permanent. Cancelled errors are never retried.
func (s *Service) embedWithRetry(ctx context.Context, texts []string, outcome *batchOutcome) ([][]float32, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialDelay
	b.MaxInterval = s.retry.MaxDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // bounded by MaxRetries instead of wall-clock

	bounded := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxInt(s.retry.MaxRetries, 0))), ctx)

	var result [][]float32
	op := func() error {
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return s.embedder.Embed(ctx, texts)
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return err // retried like a transient error; embedBatch counts it as transient if retries run out
			}
			switch classify.Classify(ctx, err) {
			case classify.Permanent:
				return backoff.Permanent(err)
			case classify.Cancelled:
				return backoff.Permanent(err)
			default:
				outcome.retries++
				return err
			}
		}
		result = out.([][]float32)
		return nil
	}

	if err := backoff.Retry(op, bounded); err != nil {
		return nil, err
	}
	return result, nil
}

func maxConcurrency(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// groupBatches packs chunks into batches respecting both a document-count
// ceiling and an estimated-token ceiling (ceil(char_count/4) per chunk).
func groupBatches(chunks []model.Chunk, maxDocs, maxTokens int) [][]model.Chunk {
	if maxDocs <= 0 {
		maxDocs = len(chunks)
		if maxDocs == 0 {
			maxDocs = 1
		}
	}

	var batches [][]model.Chunk
	var current []model.Chunk
	tokens := 0

	for _, c := range chunks {
		est := estimateTokens(c.Code)
		overflowsTokens := maxTokens > 0 && len(current) > 0 && tokens+est > maxTokens
		overflowsDocs := len(current) >= maxDocs

		if overflowsTokens || overflowsDocs {
			batches = append(batches, current)
			current = nil
			tokens = 0
		}
		current = append(current, c)
		tokens += est
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func estimateTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / 4))
}
