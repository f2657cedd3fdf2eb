// Package auth issues and checks the session tokens that identify a signed-in
// user, hashes passwords, and provides the middleware that guards the
// snippet API.
//
// SESSION FLOW:
//  1. POST /api/login (or /api/signup) checks the username and password
//  2. The server signs a JWT whose subject is the user's numeric ID
//  3. The JWT goes back in an HttpOnly "token" cookie
//  4. RequireAuth reads the cookie on later requests, validates the JWT and
//     puts the user ID in the request context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"42","jti":"cr5ld8o3b6ud0p0ue3e0","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Verification needs only the secret, no database lookup.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "snippet-oracle"

	// DefaultTokenTTL is how long a session lasts when the config does not say.
	DefaultTokenTTL = 24 * time.Hour

	minSecretLength = 16
)

// ErrInvalidToken is wrapped by every Validate failure, so callers can test
// for "bad session" without caring which check failed.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and verifies session JWTs with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A ttl of zero means DefaultTokenTTL.
// Generate a secret with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl < 0 {
		return nil, errors.New("auth: token TTL must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of tokens from Generate. Handlers use it as the cookie
// Max-Age so the cookie and the token expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for userID that expires after the service TTL.
func (s *TokenService) Generate(userID int64) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to mint an already-expired token.
//
// Each token gets a fresh xid as its "jti" so two logins in the same second
// still produce distinct tokens.
func (s *TokenService) GenerateWithDuration(userID int64, d time.Duration) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("auth: cannot issue token for user id %d", userID)
	}
	now := s.now()

	c := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user ID in its subject.
//
// The parser rejects anything not signed with HS256. Without that check a
// token claiming "alg":"none" could slip through.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return userID, nil
}
