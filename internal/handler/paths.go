package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/hookcatch/hookcatch/internal/service"
	"github.com/hookcatch/hookcatch/internal/store"
)

type createPathInput struct {
	PathID string `json:"path_id"`
}

// ListPaths returns every path, newest first.
func (h *Handler) ListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.Store.ListPaths(r.Context())
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}
	respondData(w, http.StatusOK, paths)
}

// CreatePath registers a new capture endpoint. The slug is optional;
// invalid characters are stripped rather than rejected, and a slug
// collision is a conflict.
func (h *Handler) CreatePath(w http.ResponseWriter, r *http.Request) {
	var in createPathInput
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Validation error")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			respondError(w, http.StatusBadRequest, "Validation error")
			return
		}
	}

	path, err := h.Store.CreatePath(r.Context(), in.PathID)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	log.Info().Str("path_id", path.PathID).Str("id", path.ID).Msg("path created")
	respondData(w, http.StatusCreated, path)
}

// GetPath fetches one path by slug.
func (h *Handler) GetPath(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	path, err := h.Store.FindPath(r.Context(), pathID)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}
	respondData(w, http.StatusOK, path)
}

// DeletePath removes a path and, atomically, every request it owns.
func (h *Handler) DeletePath(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	if err := h.Store.DeletePath(r.Context(), pathID); err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	h.Hub.CloseAll(pathID)

	log.Info().Str("path_id", pathID).Msg("path deleted")
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Path deleted successfully"})
}

type paginationView struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

type pathLogsView struct {
	Path       *store.Path      `json:"path"`
	Requests   []*store.Request `json:"requests"`
	Pagination paginationView   `json:"pagination"`
}

// PathLogs returns a paginated, optionally method-filtered slice of a
// path's captured requests, newest first.
func (h *Handler) PathLogs(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	q := r.URL.Query()

	limit, offset := service.ValidatePagination(q.Get("limit"), q.Get("offset"))
	includeBody := !strings.EqualFold(q.Get("include_body"), "false")
	methodFilter := q.Get("method")

	path, err := h.Store.FindPath(r.Context(), pathID)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	requests, err := h.Store.ListRequestsForPath(r.Context(), pathID, limit, offset, methodFilter)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	total, err := h.Store.CountRequestsForPath(r.Context(), pathID)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	views := make([]*store.Request, 0, len(requests))
	for _, req := range requests {
		views = append(views, req.View(includeBody))
	}

	respondData(w, http.StatusOK, pathLogsView{
		Path:     path,
		Requests: views,
		Pagination: paginationView{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	})
}

// GetPathRequest fetches one captured request. The owning path's slug
// must match; a request id guessed against another path stays hidden.
func (h *Handler) GetPathRequest(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Store.GetRequest(r.Context(), requestID, pathID)
	if err != nil {
		respondDomainError(w, err, "Request not found")
		return
	}
	respondData(w, http.StatusOK, req)
}

// PathStats returns per-path request totals and method counts.
func (h *Handler) PathStats(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	stats, err := h.Service.PathStatistics(r.Context(), pathID)
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}
	respondData(w, http.StatusOK, stats)
}

// DashboardStats returns the cross-path aggregate view.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.DashboardStats(r.Context())
	if err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}
	respondData(w, http.StatusOK, stats)
}
