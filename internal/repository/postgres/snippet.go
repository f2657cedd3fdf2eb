package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
	"github.com/sakif/snippet-oracle/internal/search"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Create inserts a snippet and its tags in one transaction and fills in the
// generated ID and CreatedAt.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.CreatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO snippets (name, code, description, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		snippet.Name,
		snippet.Code,
		snippet.Description,
		snippet.OwnerID,
		snippet.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("postgres: creating snippet: %w", err)
	}

	if err := insertTags(ctx, tx, id, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing snippet: %w", err)
	}

	snippet.ID = id
	if snippet.Tags == nil {
		snippet.Tags = []string{}
	}
	return nil
}

// insertTags writes every tag in one statement. unnest expands the array
// parameter into rows; ON CONFLICT skips a tag the snippet already has.
func insertTags(ctx context.Context, tx *sql.Tx, snippetID int64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snippet_tags (snippet_id, tag)
		 SELECT $1, unnest($2::text[])
		 ON CONFLICT DO NOTHING`,
		snippetID, pq.Array(tags),
	); err != nil {
		return fmt.Errorf("postgres: tagging snippet %d: %w", snippetID, err)
	}
	return nil
}

// GetByID retrieves a single snippet with its tags.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	var s model.Snippet

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, code, description, user_id, created_at
		 FROM snippets
		 WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("postgres: getting snippet %d: %w", id, err)
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
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(opts.Offset, 0)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, code, description, user_id, created_at
		 FROM snippets
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing snippets for user %d: %w", ownerID, err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	var ids []int64
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating snippets: %w", err)
	}

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
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE snippets SET name = $1, code = $2, description = $3 WHERE id = $4`,
		snippet.Name,
		snippet.Code,
		snippet.Description,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating snippet %d: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE snippet_id = $1`, snippet.ID); err != nil {
		return fmt.Errorf("postgres: clearing tags of snippet %d: %w", snippet.ID, err)
	}
	if err := insertTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing snippet %d: %w", snippet.ID, err)
	}
	return nil
}

// Delete removes a snippet; ON DELETE CASCADE takes its tags.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting snippet %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}

// Search runs the criteria compiled for the postgres dialect.
func (db *DB) Search(ctx context.Context, criteria search.Criteria) ([]model.SearchResult, error) {
	query, args, err := search.Compile(criteria, search.Postgres)
	if errors.Is(err, search.ErrEmptyCriteria) {
		return []model.SearchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: compiling search: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching snippets: %w", err)
	}
	defer rows.Close()

	results := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("postgres: scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating search rows: %w", err)
	}

	return results, nil
}

func (db *DB) tagsFor(ctx context.Context, ids []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT snippet_id, tag FROM snippet_tags
		 WHERE snippet_id = ANY($1)
		 ORDER BY snippet_id, tag`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("postgres: scanning tag row: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating tags: %w", err)
	}

	return tags, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
