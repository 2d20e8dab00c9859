// Package server assembles the router and HTTP server around the
// handler layer.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hookcatch/hookcatch/internal/config"
	"github.com/hookcatch/hookcatch/internal/handler"
	"github.com/hookcatch/hookcatch/internal/store"
)

type Server struct {
	cfg     *config.Config
	handler *handler.Handler
}

func New(cfg *config.Config, s store.Store) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler.New(s, cfg.MaxBodyBytes),
	}
}

// Router builds the full route table. Exposed for handler-level tests.
func (s *Server) Router() chi.Router {
	h := s.handler

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Request logger, skipped on capture routes so middleware never
	// touches the body before the pipeline reads it.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/webhook/") {
				next.ServeHTTP(w, req)
				return
			}
			middleware.Logger(next).ServeHTTP(w, req)
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/paths", h.ListPaths)
		api.Post("/paths", h.CreatePath)
		api.Get("/paths/{pathID}", h.GetPath)
		api.Delete("/paths/{pathID}", h.DeletePath)
		api.Get("/paths/{pathID}/stats", h.PathStats)
		api.Get("/paths/{pathID}/logs", h.PathLogs)
		api.Get("/paths/{pathID}/logs/{requestID}", h.GetPathRequest)
		api.Get("/paths/{pathID}/stream", h.Stream)
		api.Get("/dashboard/stats", h.DashboardStats)
	})

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	// Any method captures.
	r.HandleFunc("/webhook/{pathID}", h.CaptureWebhook)

	return r
}

func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
