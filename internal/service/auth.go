package service

// AuthService is the business logic layer for accounts and sessions:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never sets cookies or reads requests; the handler does that with the
// token it gets back.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/auth"
	"github.com/sakif/snippet-oracle/internal/model"
	"github.com/sakif/snippet-oracle/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// errBadCredentials is deliberately the same for "no such user" and "wrong
// password" so a login form cannot be used to probe which usernames exist.
var errBadCredentials = apperror.Unauthorized("invalid username or password")

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and a freshly issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// ValidateUsername checks the account name rules.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return apperror.ValidationFailed("username", "input a username")
	case len(username) < MinUsernameLength || len(username) > MaxUsernameLength:
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		return apperror.ValidationFailed("username",
			"username may only contain letters, digits, '_', '.' and '-'")
	}
	return nil
}

// ValidatePassword checks the password rules. The upper bound is bcrypt's.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return apperror.ValidationFailed("password", "input a password")
	case len(password) < MinPasswordLength:
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > auth.MaxPasswordBytes:
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "input a username")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "input a password")
	}

	user, err := s.checkCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user, "login")
}

// Signup creates an account and signs it in.
//
// Someone who lands on the signup form but types the credentials of an
// existing account is simply logged in; there is no point making them find
// the login page.
func (s *AuthService) Signup(ctx context.Context, username, password, repeatPassword string) (*AuthResult, error) {
	if username != "" && password != "" {
		user, err := s.checkCredentials(ctx, username, password)
		if err == nil {
			return s.issue(user, "signup-as-login")
		}
		if !errors.Is(err, apperror.ErrUnauthorized) {
			return nil, err
		}
	}

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if repeatPassword == "" {
		return nil, apperror.ValidationFailed("repeatPassword", "repeat your password")
	}
	if password != repeatPassword {
		return nil, apperror.ValidationFailed("repeatPassword", "passwords did not match")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "username was in use",
				Field:   "username",
			}
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user, "signup")
}

// GetUserByID returns the user for the ID a session token carried.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID encoded in a session token.
func (s *AuthService) ValidateToken(token string) (int64, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return 0, fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// TokenTTL is the session lifetime, used for the cookie's Max-Age.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) checkCredentials(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User, how string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.Int64("userID", user.ID),
		slog.String("via", how),
	)
	return &AuthResult{User: user, Token: token}, nil
}
