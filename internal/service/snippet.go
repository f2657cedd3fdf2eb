// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB or *postgres.DB, so
// the same code runs against either backend and against in-memory fakes in
// tests. Nothing in this package knows about HTTP either: the snippetctl
// CLI calls SearchService exactly the way the search handler does.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
)

const (
	MaxSnippetNameLength = 100
	MaxCodeLength        = 100000 // ~100KB of code
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// Purger drops cached data. SearchService implements it; every snippet write
// calls it so cached search results never describe rows that have changed.
type Purger interface {
	Purge()
}

// SnippetInput is the user-editable part of a snippet.
type SnippetInput struct {
	Name        string
	Code        string
	Description string
	Tags        []string
}

// SnippetService handles business logic for code snippets.
type SnippetService struct {
	repo   repository.SnippetRepository
	cache  Purger
	logger *slog.Logger
}

// NewSnippetService creates a SnippetService. cache may be nil when nothing
// is cached.
func NewSnippetService(repo repository.SnippetRepository, cache Purger, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// validate trims the input in place and enforces the field rules.
// Name and code are both required, the same as the snippet form always was.
func (in *SnippetInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = NormalizeTags(in.Tags)

	if in.Name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(in.Name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	if strings.TrimSpace(in.Code) == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if len(in.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	return validateTags(in.Tags)
}

// Create validates and saves a new snippet owned by ownerID.
func (s *SnippetService) Create(ctx context.Context, ownerID int64, in SnippetInput) (*model.Snippet, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		OwnerID:     ownerID,
		Tags:        in.Tags,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", in.Name),
			slog.Int64("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}
	s.purge()

	s.logger.Info("snippet created",
		slog.Int64("id", snippet.ID),
		slog.String("name", snippet.Name),
		slog.Int("tags", len(snippet.Tags)),
	)
	return snippet, nil
}

// GetByID retrieves any snippet by ID.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	if id <= 0 {
		return nil, apperror.NotFound("snippet", id)
	}
	return s.repo.GetByID(ctx, id)
}

// ListByOwner returns one page of a user's snippets, newest first. limit is
// clamped to 1..MaxListLimit and defaults to DefaultListLimit.
func (s *SnippetService) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	snippets, err := s.repo.ListByOwner(ctx, ownerID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.Int64("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update replaces a snippet's fields and tags. Only the owner may do it.
//
// Fetch first, then write: the fetch gives a NotFound for a missing snippet
// and the owner to check against before anything changes.
func (s *SnippetService) Update(ctx context.Context, userID, id int64, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.ownedSnippet(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	snippet.Name = in.Name
	snippet.Code = in.Code
	snippet.Description = in.Description
	snippet.Tags = in.Tags

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}
	s.purge()

	s.logger.Info("snippet updated",
		slog.Int64("id", snippet.ID),
		slog.String("name", snippet.Name),
	)
	return snippet, nil
}

// Delete removes a snippet. Only the owner may do it.
func (s *SnippetService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedSnippet(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.purge()

	s.logger.Info("snippet deleted", slog.Int64("id", id))
	return nil
}

func (s *SnippetService) ownedSnippet(ctx context.Context, userID, id int64) (*model.Snippet, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snippet.OwnerID != userID {
		s.logger.Warn("snippet write by non-owner refused",
			slog.Int64("id", id),
			slog.Int64("user", userID),
		)
		return nil, apperror.Forbidden("only the owner can change this snippet")
	}
	return snippet, nil
}

func (s *SnippetService) purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
