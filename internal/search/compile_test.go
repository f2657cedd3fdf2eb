package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Empty(t *testing.T) {
	_, _, err := Compile(Criteria{}, SQLite)
	assert.ErrorIs(t, err, ErrEmptyCriteria)
}

func TestCompile_SQLite(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "names only",
			query:    "sort map",
			wantSQL:  "SELECT s.id, s.name FROM snippets AS s WHERE 1=1 AND (instr(s.name, ?) = 1 OR instr(s.name, ?) = 1) ORDER BY s.id",
			wantArgs: []any{"sort", "map"},
		},
		{
			name:     "tags only",
			query:    ":algo :list",
			wantSQL:  "SELECT s.id, s.name FROM snippets AS s WHERE 1=1 AND EXISTS (SELECT 1 FROM snippet_tags AS t WHERE t.snippet_id = s.id AND t.tag IN (?, ?)) ORDER BY s.id",
			wantArgs: []any{"algo", "list"},
		},
		{
			name:     "descriptions only",
			query:    "-quick",
			wantSQL:  "SELECT s.id, s.name FROM snippets AS s WHERE 1=1 AND (instr(s.description, ?) > 0) ORDER BY s.id",
			wantArgs: []any{"quick"},
		},
		{
			name:  "all categories",
			query: "-quick sort :algo",
			wantSQL: "SELECT s.id, s.name FROM snippets AS s WHERE 1=1" +
				" AND (instr(s.name, ?) = 1)" +
				" AND EXISTS (SELECT 1 FROM snippet_tags AS t WHERE t.snippet_id = s.id AND t.tag IN (?))" +
				" AND (instr(s.description, ?) > 0)" +
				" ORDER BY s.id",
			wantArgs: []any{"sort", "algo", "quick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Compile(Parse(tt.query), SQLite)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompile_PostgresNumbersPlaceholders(t *testing.T) {
	sql, args, err := Compile(Parse("a b :x -d"), Postgres)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT s.id, s.name FROM snippets AS s WHERE 1=1"+
			" AND (strpos(s.name, $1) = 1 OR strpos(s.name, $2) = 1)"+
			" AND EXISTS (SELECT 1 FROM snippet_tags AS t WHERE t.snippet_id = s.id AND t.tag IN ($3))"+
			" AND (strpos(s.description, $4) > 0)"+
			" ORDER BY s.id",
		sql)
	assert.Equal(t, []any{"a", "b", "x", "d"}, args)
}

func TestCompile_UserTextIsBoundNotInlined(t *testing.T) {
	sql, args, err := Compile(Parse("x'); DROP TABLE snippets; --"), SQLite)
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP")
	assert.Contains(t, args, "x');")
}
