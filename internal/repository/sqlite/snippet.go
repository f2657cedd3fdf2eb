package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
	"github.com/sakif/snippet-oracle/internal/search"
)

// COMPILE-TIME INTERFACE CHECKS:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, so a
// missing method shows up here instead of at some distant call site.
var (
	_ repository.SnippetRepository = (*DB)(nil)
	_ repository.SearchRepository  = (*DB)(nil)
)

// Create inserts a snippet and its tags in one transaction.
//
// The snippet row and its tag rows must appear together or not at all: a
// snippet that is visible to search before its tags are written would briefly
// miss every tag query. A transaction makes the pair atomic.
//
// The caller's struct receives the generated ID and CreatedAt.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.CreatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so deferring it is safe.
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snippets (name, code, description, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snippet.Name,
		snippet.Code,
		snippet.Description,
		snippet.OwnerID,
		snippet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	// LastInsertId returns the INTEGER PRIMARY KEY SQLite just assigned.
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading snippet id: %w", err)
	}

	if err := insertTags(ctx, tx, id, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet: %w", err)
	}

	snippet.ID = id
	if snippet.Tags == nil {
		snippet.Tags = []string{}
	}
	return nil
}

// insertTags writes one association row per tag. INSERT OR IGNORE keeps the
// (snippet_id, tag) primary key from failing on a repeated tag.
func insertTags(ctx context.Context, tx *sql.Tx, snippetID int64, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO snippet_tags (snippet_id, tag) VALUES (?, ?)`,
			snippetID, tag,
		); err != nil {
			return fmt.Errorf("sqlite: tagging snippet %d with %q: %w", snippetID, tag, err)
		}
	}
	return nil
}

// GetByID retrieves a single snippet, including its tags.
//
// sql.ErrNoRows just means "no matching row". We translate it to the app's
// NotFound error so the handler can answer 404.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	var s model.Snippet

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, code, description, user_id, created_at
		 FROM snippets
		 WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}

	tags, err := db.tagsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	s.Tags = tagsOrEmpty(tags[id])

	return &s, nil
}

// ListByOwner returns one page of a user's snippets, newest first.
func (db *DB) ListByOwner(ctx context.Context, ownerID int64, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := max(opts.Offset, 0)

	// id DESC breaks ties between snippets created in the same instant.
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, code, description, user_id, created_at
		 FROM snippets
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets for user %d: %w", ownerID, err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	// Release the connection before the tag query; an in-memory database
	// has only one.
	rows.Close()

	tags, err := db.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range snippets {
		snippets[i].Tags = tagsOrEmpty(tags[snippets[i].ID])
	}

	return snippets, nil
}

// Update replaces a snippet's editable fields and its whole tag set.
// Same pattern as Delete — RowsAffected == 0 means the snippet doesn't exist.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE snippets SET name = ?, code = ?, description = ? WHERE id = ?`,
		snippet.Name,
		snippet.Code,
		snippet.Description,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE snippet_id = ?`, snippet.ID); err != nil {
		return fmt.Errorf("sqlite: clearing tags of snippet %d: %w", snippet.ID, err)
	}
	if err := insertTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snippet %d: %w", snippet.ID, err)
	}
	return nil
}

// Delete removes a snippet. Its tag rows go with it (ON DELETE CASCADE).
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}

// Search runs the compiled criteria query and returns {name, id} pairs in id
// order. Empty criteria short-circuit to an empty result.
func (db *DB) Search(ctx context.Context, criteria search.Criteria) ([]model.SearchResult, error) {
	query, args, err := search.Compile(criteria, search.SQLite)
	if errors.Is(err, search.ErrEmptyCriteria) {
		return []model.SearchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: compiling search: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching snippets: %w", err)
	}
	defer rows.Close()

	results := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating search rows: %w", err)
	}

	return results, nil
}

// tagsFor loads the tags of several snippets in one query, keyed by snippet ID.
func (db *DB) tagsFor(ctx context.Context, ids []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT snippet_id, tag FROM snippet_tags
		 WHERE snippet_id IN (`+placeholders+`)
		 ORDER BY snippet_id, tag`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}

// tagsOrEmpty keeps JSON output as [] rather than null for untagged snippets.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
