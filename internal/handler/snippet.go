package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-oracle/internal/apperror"
	"github.com/sakif/snippet-oracle/internal/auth"
	"github.com/sakif/snippet-oracle/internal/service"
)

// SnippetHandler manages CRUD operations for code snippets.
//
// Every route here sits behind RequireAuth, so the caller's user ID is always
// in the request context. Ownership checks happen in the service.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// snippetRequest is the body of create and update.
type snippetRequest struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Tags        tagList `json:"tags"`
}

func (req snippetRequest) input() service.SnippetInput {
	return service.SnippetInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Tags:        []string(req.Tags),
	}
}

// tagList accepts tags either as a JSON array (["go", "http"]) or as the
// comma-separated string the snippet form posts ("go, http"). The service
// normalizes whatever comes out.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*t = service.ParseTagList(raw)
		return nil
	}

	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*t = tags
	return nil
}

// HandleCreate saves a new snippet owned by the caller.
//
// HTTP: POST /api/snippets
// Response: 201 with the stored snippet (id, tags and createdAt filled in).
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleList returns one page of the caller's snippets, newest first.
//
// HTTP: GET /api/snippets?limit=20&offset=0
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	snippets, err := h.snippets.ListByOwner(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippets)
}

// HandleGetByID returns any snippet by id.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := snippetID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate replaces a snippet's fields and tags. Owner only.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := snippetID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID, id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet. Owner only.
//
// HTTP: DELETE /api/snippets/{id}
// Response: 204 No Content
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := snippetID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.snippets.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SnippetHandler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return userID, ok
}

// snippetID reads the {id} URL parameter. Anything that is not a positive
// integer cannot name a snippet, so it is reported as not found.
func snippetID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("snippet", raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
