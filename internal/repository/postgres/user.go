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
)

// uniqueViolation is the SQLSTATE postgres reports for a UNIQUE conflict.
const uniqueViolation = "23505"

// CreateUser inserts a new user. A taken username comes back as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = $1`, id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `WHERE username = $1`, username)
}

func (db *DB) getUser(ctx context.Context, where string, key any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users `+where,
		key,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: getting user %v: %w", key, err)
	}

	return &u, nil
}
