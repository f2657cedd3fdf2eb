package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sakif/snippet-oracle/internal/metrics"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
	"github.com/sakif/snippet-oracle/internal/search"
)

// SearchOptions configures a SearchService.
type SearchOptions struct {
	Mode search.Mode
	// CacheSize is the number of distinct queries kept; 0 disables caching.
	CacheSize int
	// CacheTTL bounds how long a cached result may be served.
	CacheTTL time.Duration
}

// SearchService resolves free-text queries: parse, apply the mode, consult
// the cache, ask the store, de-duplicate.
//
// It is safe for concurrent use. The only shared state is the LRU, which does
// its own locking, and a generation counter.
type SearchService struct {
	repo    repository.SearchRepository
	mode    search.Mode
	cache   *expirable.LRU[string, []model.SearchResult]
	metrics *metrics.Metrics
	logger  *slog.Logger

	// generation is bumped by Purge. A search only caches its result if no
	// purge happened while it was talking to the store, so a write that lands
	// mid-search cannot leave a stale entry behind.
	generation atomic.Uint64
}

func NewSearchService(repo repository.SearchRepository, opts SearchOptions, m *metrics.Metrics, logger *slog.Logger) *SearchService {
	s := &SearchService{
		repo:    repo,
		mode:    opts.Mode,
		metrics: m,
		logger:  logger,
	}
	if opts.CacheSize > 0 {
		s.cache = expirable.NewLRU[string, []model.SearchResult](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// Mode reports how this service combines query categories.
func (s *SearchService) Mode() search.Mode {
	return s.mode
}

// Search resolves raw into matching {name, id} records.
//
// An empty or delimiter-only query returns an empty, non-nil slice without
// touching the store. Store failures are returned wrapped and are not retried.
// Each snippet appears at most once.
func (s *SearchService) Search(ctx context.Context, raw string) ([]model.SearchResult, error) {
	start := time.Now()
	criteria := s.mode.Apply(search.Parse(raw))
	strategy := criteria.Strategy().String()

	defer func() {
		s.metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}()

	if criteria.IsEmpty() {
		s.record(strategy, metrics.StatusOK, 0)
		return []model.SearchResult{}, nil
	}

	key := criteria.Key()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.SearchCache.WithLabelValues(metrics.CacheHit).Inc()
			s.record(strategy, metrics.StatusOK, len(cached))
			return slices.Clone(cached), nil
		}
		s.metrics.SearchCache.WithLabelValues(metrics.CacheMiss).Inc()
	}

	gen := s.generation.Load()
	results, err := s.repo.Search(ctx, criteria)
	if err != nil {
		s.record(strategy, metrics.StatusError, 0)
		s.logger.Error("search failed",
			slog.String("query", raw),
			slog.String("strategy", strategy),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching %q: %w", raw, err)
	}
	results = dedupeByID(results)

	if s.cache != nil && s.generation.Load() == gen {
		s.cache.Add(key, slices.Clone(results))
	}

	s.record(strategy, metrics.StatusOK, len(results))
	s.logger.Debug("search resolved",
		slog.String("key", key),
		slog.String("strategy", strategy),
		slog.String("mode", s.mode.String()),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// Purge empties the result cache.
func (s *SearchService) Purge() {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *SearchService) record(strategy, status string, n int) {
	s.metrics.SearchesTotal.WithLabelValues(strategy, status).Inc()
	if status == metrics.StatusOK {
		s.metrics.SearchResults.Observe(float64(n))
	}
}

// dedupeByID keeps the first record for each ID. The SQL backends already
// return each snippet once; this keeps that promise for any SearchRepository.
func dedupeByID(results []model.SearchResult) []model.SearchResult {
	seen := make(map[int64]struct{}, len(results))
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
