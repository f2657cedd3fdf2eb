package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-oracle/internal/metrics"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/search"
)

func newTestSearchService(store *fakeStore, opts SearchOptions) (*SearchService, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewSearchService(store, opts, m, quietLogger()), m
}

// seedFixture stores the two-snippet example used throughout:
//
//	sort_list  tags {algo, list}  "quick sort"
//	sort_map   tags {algo}        "hash map"
func seedFixture(store *fakeStore) (list, hash model.Snippet) {
	list = store.seed(1, "sort_list", "quick sort", "algo", "list")
	hash = store.seed(1, "sort_map", "hash map", "algo")
	return list, hash
}

func resultIDs(results []model.SearchResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestSearch_Fixture(t *testing.T) {
	store := newFakeStore()
	list, hash := seedFixture(store)
	svc, _ := newTestSearchService(store, SearchOptions{})

	tests := []struct {
		query string
		want  []int64
	}{
		{"sort :algo", []int64{list.ID, hash.ID}},
		{":list", []int64{list.ID}},
		{"-quick", []int64{list.ID}},
		{"sort_m", []int64{hash.ID}},
		// Names match by prefix: "map" is inside "sort_map" but does not start it.
		{"map", []int64{}},
		{"sort :algo -hash", []int64{hash.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := svc.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(got))
		})
	}
}

func TestSearch_EmptyQueriesSkipStore(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	svc, m := newTestSearchService(store, SearchOptions{})

	for _, q := range []string{"", "   ", "\t\n", ":", "-", ": - :"} {
		got, err := svc.Search(context.Background(), q)
		require.NoError(t, err, "query %q", q)
		assert.NotNil(t, got, "query %q must yield an empty list, not nil", q)
		assert.Empty(t, got, "query %q", q)
	}

	assert.Zero(t, store.calls())
	assert.Equal(t, float64(6), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("none", metrics.StatusOK)))
}

func TestSearch_Deduplicates(t *testing.T) {
	store := newFakeStore()
	list, hash := seedFixture(store)
	store.duplicate = true
	svc, _ := newTestSearchService(store, SearchOptions{})

	got, err := svc.Search(context.Background(), ":algo :list")
	require.NoError(t, err)
	assert.Equal(t, []int64{list.ID, hash.ID}, resultIDs(got))
}

func TestSearch_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	boom := errors.New("disk I/O error")
	store.searchErr = boom
	svc, m := newTestSearchService(store, SearchOptions{CacheSize: 8, CacheTTL: time.Minute})

	_, err := svc.Search(context.Background(), ":algo")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `searching ":algo"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("tag", metrics.StatusError)))

	// Failures are not cached and not retried: the next call hits the store again.
	_, _ = svc.Search(context.Background(), ":algo")
	assert.Equal(t, 2, store.calls())
}

func TestSearch_PrecedenceMode(t *testing.T) {
	store := newFakeStore()
	list, hash := seedFixture(store)

	conj, _ := newTestSearchService(store, SearchOptions{Mode: search.ModeConjunctive})
	prec, _ := newTestSearchService(store, SearchOptions{Mode: search.ModePrecedence})

	tests := []struct {
		query    string
		wantConj []int64
		wantPrec []int64
	}{
		// tag+name wins; the description term is ignored in precedence mode.
		{"sort :algo -hash", []int64{hash.ID}, []int64{list.ID, hash.ID}},
		// description wins over a lone tag.
		{":list -hash", []int64{}, []int64{hash.ID}},
		// description wins over a lone name.
		{"sort_l -map", []int64{}, []int64{hash.ID}},
		// single categories agree.
		{":list", []int64{list.ID}, []int64{list.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := conj.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConj, resultIDs(got), "conjunctive")

			got, err = prec.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrec, resultIDs(got), "precedence")
		})
	}
}

func TestSearch_Cache(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	svc, m := newTestSearchService(store, SearchOptions{CacheSize: 8, CacheTTL: time.Minute})
	ctx := context.Background()

	first, err := svc.Search(ctx, "sort :algo")
	require.NoError(t, err)

	// Same criteria, different spelling: one store call between them.
	second, err := svc.Search(ctx, "  sort sort   :algo ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchCache.WithLabelValues(metrics.CacheHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchCache.WithLabelValues(metrics.CacheMiss)))

	// Callers get their own copy.
	second[0].Name = "mutated"
	third, err := svc.Search(ctx, "sort :algo")
	require.NoError(t, err)
	assert.Equal(t, "sort_list", third[0].Name)
}

func TestSearch_PurgeAfterWrite(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	svc, _ := newTestSearchService(store, SearchOptions{CacheSize: 8, CacheTTL: time.Minute})
	snippets := NewSnippetService(store, svc, quietLogger())
	ctx := context.Background()

	before, err := svc.Search(ctx, ":algo")
	require.NoError(t, err)
	require.Len(t, before, 2)

	_, err = snippets.Create(ctx, 1, SnippetInput{Name: "bubble", Code: "x", Tags: []string{"algo"}})
	require.NoError(t, err)

	after, err := svc.Search(ctx, ":algo")
	require.NoError(t, err)
	assert.Len(t, after, 3, "the new snippet is visible immediately")
	assert.Equal(t, 2, store.calls())
}

func TestSearch_CacheDisabled(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	svc, m := newTestSearchService(store, SearchOptions{CacheSize: 0})

	for i := 0; i < 3; i++ {
		_, err := svc.Search(context.Background(), ":algo")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.calls())
	assert.Zero(t, testutil.CollectAndCount(m.SearchCache))
}

func TestSearch_Concurrent(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	svc, _ := newTestSearchService(store, SearchOptions{CacheSize: 4, CacheTTL: time.Minute})

	queries := []string{"sort", ":algo", "-quick", "sort :list", ""}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			_, err := svc.Search(context.Background(), q)
			assert.NoError(t, err)
			if q == ":algo" {
				svc.Purge()
			}
		}(queries[i%len(queries)])
	}
	wg.Wait()
}

// Running a query twice against an unchanged store gives the same set.
func TestSearch_Idempotent(t *testing.T) {
	store := newFakeStore()
	seedFixture(store)
	store.seed(2, "sorted", "merge sort", "algo", "stable")
	svc, _ := newTestSearchService(store, SearchOptions{})

	for _, q := range []string{"sort", ":algo :stable", "-sort", "so :algo -m"} {
		a, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		b, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.ElementsMatch(t, a, b, "query %q", q)
	}
}
