package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/search"
)

// seedSearchFixture stores the two snippets most search tests run against:
//
//	1  sort_list  tags {algo, list}  "quick sort"
//	2  sort_map   tags {algo}        "hash map"
func seedSearchFixture(t *testing.T) (*DB, *model.Snippet, *model.Snippet) {
	t.Helper()
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	list := createTestSnippet(t, db, owner.ID, "sort_list", "quick sort", "algo", "list")
	hash := createTestSnippet(t, db, owner.ID, "sort_map", "hash map", "algo")
	return db, list, hash
}

func ids(results []model.SearchResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_Fixture(t *testing.T) {
	db, list, hash := seedSearchFixture(t)

	tests := []struct {
		query string
		want  []int64
	}{
		{"sort :algo", []int64{list.ID, hash.ID}},
		{":list", []int64{list.ID}},
		{"-quick", []int64{list.ID}},
		{"map", []int64{}},
		{"sort_m", []int64{hash.ID}},
		{":algo", []int64{list.ID, hash.ID}},
		{"sort :algo -hash", []int64{hash.ID}},
		{":nope", []int64{}},
		{"sort_list sort_map", []int64{list.ID, hash.ID}},
		{"-quick -hash", []int64{list.ID, hash.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := db.Search(context.Background(), search.Parse(tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSearch_ReturnsNames(t *testing.T) {
	db, list, _ := seedSearchFixture(t)

	got, err := db.Search(context.Background(), search.Parse(":list"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SearchResult{ID: list.ID, Name: "sort_list"}, got[0])
}

func TestSearch_EmptyCriteria(t *testing.T) {
	db, _, _ := seedSearchFixture(t)

	for _, q := range []string{"", "   ", ":", "- :"} {
		got, err := db.Search(context.Background(), search.Parse(q))
		require.NoError(t, err, q)
		assert.NotNil(t, got, q)
		assert.Empty(t, got, q)
	}
}

// A snippet with two requested tags must still appear once.
func TestSearch_MultiTagMatchNotDuplicated(t *testing.T) {
	db, list, hash := seedSearchFixture(t)

	got, err := db.Search(context.Background(), search.Parse(":algo :list"))
	require.NoError(t, err)
	assert.Equal(t, []int64{list.ID, hash.ID}, ids(got))
}

func TestSearch_CaseSensitive(t *testing.T) {
	db, _, _ := seedSearchFixture(t)

	for _, q := range []string{"SORT", ":ALGO", "-Quick"} {
		got, err := db.Search(context.Background(), search.Parse(q))
		require.NoError(t, err, q)
		assert.Empty(t, got, q)
	}
}

// LIKE wildcards in a term are literal characters, not patterns.
func TestSearch_WildcardsAreLiteral(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	pct := createTestSnippet(t, db, owner.ID, "100%_done", "50% off")
	createTestSnippet(t, db, owner.ID, "1000", "500 off")

	got, err := db.Search(context.Background(), search.Parse("100%"))
	require.NoError(t, err)
	assert.Equal(t, []int64{pct.ID}, ids(got))

	got, err = db.Search(context.Background(), search.Parse("-%"))
	require.NoError(t, err)
	assert.Equal(t, []int64{pct.ID}, ids(got))
}

func TestSearch_InjectionIsData(t *testing.T) {
	db, _, _ := seedSearchFixture(t)

	got, err := db.Search(context.Background(), search.Parse(`x'); DROP TABLE snippets; --`))
	require.NoError(t, err)
	assert.Empty(t, got)

	// The table is still there.
	all, err := db.Search(context.Background(), search.Parse(":algo"))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearch_PrecedenceModeIgnoresDescriptions(t *testing.T) {
	db, list, hash := seedSearchFixture(t)

	c := search.ModePrecedence.Apply(search.Parse("sort :algo -hash"))
	got, err := db.Search(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{list.ID, hash.ID}, ids(got))
}

// The SQL and the in-memory evaluator must agree on every query.
func TestSearch_AgreesWithMatches(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	snippets := []*model.Snippet{
		createTestSnippet(t, db, owner.ID, "sort_list", "quick sort", "algo", "list"),
		createTestSnippet(t, db, owner.ID, "sort_map", "hash map", "algo"),
		createTestSnippet(t, db, owner.ID, "Sorted", "stable merge", "Algo"),
		createTestSnippet(t, db, owner.ID, "http_get", "fetch a url", "net", "go"),
		createTestSnippet(t, db, owner.ID, "http", "", "net"),
	}

	queries := []string{
		"sort", "Sort", "http", ":net", ":go :algo", "-a", "-sort -url",
		"http :go", "sort :Algo", "so -merge", "s :algo -map -quick", "x",
	}

	for _, q := range queries {
		c := search.Parse(q)
		var want []int64
		for _, s := range snippets {
			if c.Matches(s.Name, s.Description, s.Tags) {
				want = append(want, s.ID)
			}
		}
		if want == nil {
			want = []int64{}
		}

		got, err := db.Search(context.Background(), c)
		require.NoError(t, err, q)
		assert.Equal(t, want, ids(got), "query %q", q)
	}
}
