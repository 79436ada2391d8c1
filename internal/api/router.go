// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trustlens/internal/middleware"
)

// NewRouter assembles the HTTP routing tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if !h.cfg.Server.RateLimitDisabled {
		r.Use(httprate.LimitByIP(h.cfg.Server.RateLimitReqs, h.cfg.Server.RateLimitWindow))
	}
	r.Use(middleware.Compress)
	r.Use(h.observe)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/domains/check", h.CheckDomain)
		r.Get("/domains/{domain}/reputation", h.GetReputation)
		r.Post("/domains/{domain}/reputation/recompute", h.RecomputeReputation)

		r.Post("/feedback", h.CreateFeedback)

		r.Get("/flags", h.ListFlags)
		r.Post("/flags/{id}/resolve", h.ResolveFlag)

		r.Get("/graph", h.GetGraph)
		r.Get("/export", h.GetExport)

		r.Get("/events", h.ListEvents)
		r.Get("/events/stream", h.StreamEvents)

		r.Get("/health/live", h.Livez)
		r.Get("/health/ready", h.Readyz)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
