// Package api exposes playback resolution and user-state updates over a
// local HTTP API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/playback"
)

// Handler serves the API
type Handler struct {
	coordinator *playback.Coordinator
	complements *complement.Service
	logger      *slog.Logger
}

// NewHandler creates the API handler
func NewHandler(coordinator *playback.Coordinator, complements *complement.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{coordinator: coordinator, complements: complements, logger: logger}
}

// Routes builds the chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/anime/{animeID}", func(r chi.Router) {
		r.Get("/episodes", h.ListEpisodes)
		r.Post("/play", h.Play)
		r.Put("/favorite", h.SetAnimeFavorite)
	})

	r.Route("/episodes/{episodeID}", func(r chi.Router) {
		r.Get("/", h.GetEpisode)
		r.Delete("/", h.DeleteEpisode)
		r.Put("/favorite", h.SetEpisodeFavorite)
		r.Put("/progress", h.UpdateProgress)
	})

	return r
}
