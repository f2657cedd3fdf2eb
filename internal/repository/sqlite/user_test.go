package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "testuser", PasswordHash: "$2a$10$hash"}

	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestOwner(t, db, "taken")

	err := db.CreateUser(context.Background(), &model.User{Username: "taken", PasswordHash: "x"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_UsernameIsCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	createTestOwner(t, db, "Alice")

	if err := db.CreateUser(context.Background(), &model.User{Username: "alice", PasswordHash: "x"}); err != nil {
		t.Errorf("CreateUser() error = %v, want nil for a differently-cased name", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestOwner(t, db, "bob")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if found.Username != "bob" {
		t.Errorf("Username = %q, want %q", found.Username, "bob")
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, "hash")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 777)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestOwner(t, db, "carol")

	found, err := db.GetUserByUsername(context.Background(), "carol")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUser_CascadesSnippets(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "dave")
	s := createTestSnippet(t, db, owner.ID, "mine", "", "t")

	if _, err := db.conn.Exec(`DELETE FROM users WHERE id = ?`, owner.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	_, err := db.GetByID(context.Background(), s.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after owner delete: error = %v, want ErrNotFound", err)
	}
}
