package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type captureAck struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
}

// CaptureWebhook records any inbound request against the named path.
// Content is never a reason to reject: any method, headers, and body
// are accepted. Only an unknown path, an oversized payload, or a
// storage failure produce an error response.
func (h *Handler) CaptureWebhook(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")

	path, err := h.Store.FindPath(r.Context(), pathID)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			log.Warn().Str("path_id", pathID).Msg("webhook request to non-existent path")
			respondError(w, http.StatusNotFound, "Webhook path not found")
			return
		}
		respondDomainError(w, err, "Webhook path not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	rec, err := h.Pipeline.Capture(r.Context(), r, path)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request payload too large")
			return
		}
		log.Error().
			Err(err).
			Str("path_id", pathID).
			Str("method", r.Method).
			Msg("error capturing webhook request")
		respondError(w, http.StatusInternalServerError, "Failed to capture request")
		return
	}

	log.Info().
		Str("path_id", pathID).
		Str("method", rec.Method).
		Str("request_id", rec.ID).
		Str("ip_address", rec.IPAddress).
		Msg("webhook request captured")

	h.Hub.Broadcast(pathID, rec.View(false))

	// Minimal acknowledgment only; the full record is served by the
	// query API, never echoed back on capture.
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Request captured successfully",
		Data: captureAck{
			RequestID: rec.ID,
			Timestamp: rec.Timestamp,
			Method:    rec.Method,
		},
	})
}
