// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/search"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type SnippetRepository interface {
	// Create inserts the snippet and its tags, filling in ID and CreatedAt.
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id int64) (*model.Snippet, error)
	// ListByOwner returns a user's snippets, newest first.
	ListByOwner(ctx context.Context, ownerID int64, opts ListOptions) ([]model.Snippet, error)
	// Update replaces name, code, description and the tag set.
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id int64) error
}

// SearchRepository evaluates parsed search criteria. Implementations must
// return each matching snippet once.
type SearchRepository interface {
	Search(ctx context.Context, criteria search.Criteria) ([]model.SearchResult, error)
}

type UserRepository interface {
	// CreateUser inserts the user; a taken username yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Store is everything a storage backend provides.
type Store interface {
	SnippetRepository
	SearchRepository
	UserRepository
	Close() error
}
