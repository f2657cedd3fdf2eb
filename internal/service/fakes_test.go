package service

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
	"github.com/sakif/snippet-oracle/internal/search"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. Using a hand-written fake (not
// a mock framework) keeps the tests readable: you can see exactly what it
// does. Its Search evaluates criteria with search.Criteria.Matches, the same
// semantics the SQL backends are tested against.

type fakeStore struct {
	mu       sync.Mutex
	snippets map[int64]model.Snippet
	users    map[int64]model.User
	nextID   int64

	// set to a non-nil error to simulate a database failure
	searchErr error
	createErr error
	// searchCalls counts Search invocations, to observe cache hits.
	searchCalls int
	// duplicate makes Search return every match twice, like a naive join.
	duplicate bool
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		snippets: make(map[int64]model.Snippet),
		users:    make(map[int64]model.User),
	}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Create(_ context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	stored := *s
	stored.Tags = slices.Clone(s.Tags)
	f.snippets[s.ID] = stored
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	s.Tags = slices.Clone(s.Tags)
	return &s, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID int64, opts repository.ListOptions) ([]model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Snippet{}
	for _, s := range f.snippets {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if opts.Offset >= len(out) {
		return []model.Snippet{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	f.snippets[s.ID] = *s
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(f.snippets, id)
	return nil
}

func (f *fakeStore) Search(_ context.Context, c search.Criteria) ([]model.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := []model.SearchResult{}
	for _, s := range f.snippets {
		if c.Matches(s.Name, s.Description, s.Tags) {
			r := model.SearchResult{ID: s.ID, Name: s.Name}
			out = append(out, r)
			if f.duplicate {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", u.Username)
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

// seed stores a snippet directly, bypassing validation.
func (f *fakeStore) seed(ownerID int64, name, description string, tags ...string) model.Snippet {
	s := &model.Snippet{Name: name, Code: "pass", Description: description, OwnerID: ownerID, Tags: tags}
	if err := f.Create(context.Background(), s); err != nil {
		panic(err)
	}
	return *s
}

// quietLogger only shows errors, so expected failures don't clutter test output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
