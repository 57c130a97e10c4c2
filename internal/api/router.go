// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learntrack/learntrack/internal/auth"
	"github.com/learntrack/learntrack/internal/config"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the given handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the chi route tree.
//
// Health and /metrics stay outside the identity middleware so probes and
// scrapers need no credentials. Everything under /api/v1 requires a
// resolvable user identity.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(router.cfg.CORSOrigins))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter(router.cfg))
		r.Use(requestMetrics)
		r.Use(auth.Middleware(func(w http.ResponseWriter, req *http.Request) {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid identity", nil)
		}))

		r.Route("/resources", func(r chi.Router) {
			r.Post("/", router.handler.CreateResource)
			r.Get("/", router.handler.ListResources)
			r.Get("/{resourceID}", router.handler.GetResource)
			r.Patch("/{resourceID}", router.handler.UpdateResource)
			r.Delete("/{resourceID}", router.handler.DeleteResource)
			r.Post("/{resourceID}/progress", router.handler.AppendProgress)
			r.Get("/{resourceID}/progress", router.handler.ListProgress)
		})

		r.Get("/stats/weekly", router.handler.WeeklyStats)
		r.Post("/ai-coach", router.handler.AICoach)
	})

	return r
}
