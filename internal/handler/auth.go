package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-oracle/internal/auth"
	"github.com/sakif/snippet-oracle/internal/service"
)

// AuthHandler manages username/password accounts and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → create an account (or log in, if the credentials already work)
//   - HandleLogin  → check credentials, issue the session cookie
//   - HandleLogout → clear the session cookie
//   - HandleMe     → return the currently logged-in user's profile
//
// The handler only speaks HTTP: credential rules, hashing and token minting
// all live in service.AuthService.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie sets the Secure flag on
// the session cookie and should be on whenever the site is served over HTTPS.
func NewAuthHandler(auth *service.AuthService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type credentialsRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeatPassword"`
}

// HandleSignup creates an account and signs it in.
//
// HTTP: POST /api/signup
// Body: {"username": "...", "password": "...", "repeatPassword": "..."}
//
// A caller who already holds a valid session (OptionalAuth put their ID in
// the context) just gets their profile back; no second account is made.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		user, err := h.auth.GetUserByID(r.Context(), userID)
		if err == nil {
			writeJSON(w, http.StatusOK, user)
			return
		}
		// The token outlived its user; fall through to a normal signup.
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Signup(r.Context(), req.Username, req.Password, req.RepeatPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, res.Token)
	writeJSON(w, http.StatusCreated, res.User)
}

// HandleLogin checks credentials and sets the session cookie.
//
// HTTP: POST /api/login
// Body: {"username": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, res.Token)
	writeJSON(w, http.StatusOK, res.User)
}

// HandleLogout clears the JWT cookie, effectively logging the user out.
//
// HTTP: POST /api/logout
//
// JWTs are stateless, so there is nothing to revoke server-side: we just tell
// the browser to drop the cookie. A copied token stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// setSession stores the JWT in an HttpOnly cookie that lives as long as the
// token does.
//
//   - HttpOnly: JavaScript can't read it (XSS can't steal the session)
//   - SameSite=Lax: not sent on cross-site POSTs
func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.auth.TokenTTL(),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

