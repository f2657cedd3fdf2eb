package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-oracle/internal/model"
)

// Searcher resolves a raw query string. service.SearchService implements it.
type Searcher interface {
	Search(ctx context.Context, raw string) ([]model.SearchResult, error)
}

// SearchHandler serves the public search endpoint.
type SearchHandler struct {
	search Searcher
	logger *slog.Logger
}

func NewSearchHandler(search Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// SearchResponse wraps the matches so the body is always an object.
type SearchResponse struct {
	Results []model.SearchResult `json:"results"`
}

// HandleSearch answers GET /search?q=<query>.
//
// The query language:
//
//	sort        name starts with "sort"
//	:algo       tagged "algo"
//	-quick      description contains "quick"
//
// A missing q is the empty query and yields {"results":[]}.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
