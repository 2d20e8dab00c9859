package handler

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const serviceName = "hookcatch"

func writeHealth(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Live always reports healthy while the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"service": serviceName,
	})
}

// Ready reports healthy only when storage answers a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("readiness check failed")
		writeHealth(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not ready",
			"service":  serviceName,
			"database": "disconnected",
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"service":  serviceName,
		"database": "connected",
	})
}
