// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package api exposes the album session over HTTP using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjellman/albumrotor/internal/middleware"
)

// NewRouter builds the HTTP routing tree around the given handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)

		r.Route("/album", func(r chi.Router) {
			r.Get("/items", h.Items)
			r.Post("/rebuild", h.Rebuild)
			r.Post("/displayed", h.Displayed)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
