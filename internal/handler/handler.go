package handler

import (
	"net/http"

	json "github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	"github.com/rs/zerolog/log"

	"github.com/hookcatch/hookcatch/internal/capture"
	"github.com/hookcatch/hookcatch/internal/service"
	"github.com/hookcatch/hookcatch/internal/store"
)

// Handler owns the HTTP boundary: it translates domain results and
// typed failures into response envelopes and status codes.
type Handler struct {
	Store    store.Store
	Service  *service.Service
	Pipeline *capture.Pipeline
	Hub      *Hub

	MaxBodyBytes int64
}

func New(s store.Store, maxBodyBytes int64) *Handler {
	return &Handler{
		Store:        s,
		Service:      service.New(s),
		Pipeline:     capture.New(s),
		Hub:          NewHub(),
		MaxBodyBytes: maxBodyBytes,
	}
}

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// statusFor maps the error taxonomy onto HTTP status codes. Anything
// without a recognized category is an internal failure.
func statusFor(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		case goerrors.CategoryConflict:
			return http.StatusConflict
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondDomainError translates a domain failure. Internal error text
// is logged, never echoed to the client; notFoundMsg supplies the
// route-specific 404 wording.
func respondDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		respondError(w, status, notFoundMsg)
	case http.StatusConflict:
		respondError(w, status, "Path already exists")
	case http.StatusBadRequest:
		respondError(w, status, "Invalid request")
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
