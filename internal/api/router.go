package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/infrastructure/metrics"
)

// healthProbeTimeout bounds the Modbus probe made by the health endpoint.
const healthProbeTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.originMiddleware)

	if s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/session", s.handleSession)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// Guarded routes
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/auth/me", s.handleMe)

			r.Route("/modbus", func(r chi.Router) {
				r.Get("/health", s.handleModbusHealth)
				r.Post("/category/normalize", s.handleNormalizeCategory)
				r.With(s.requirePermission(auth.PermModbusWrite)).Put("/coils", s.handleWriteCoils)
				r.Get("/{space}", s.handleModbusRead)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/{id}", s.handleGetDevice)
			})

			r.With(s.requireAdmin).Get("/users", s.handleListUsers)

			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth reports the console's own state plus, when configured, a
// probe of the backend's Modbus session. It always answers 200; a failing
// probe only downgrades the status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":        "ok",
		"version":       s.version,
		"authenticated": s.store.IsAuthenticated(),
	}
	if s.hub != nil {
		resp["websocket_clients"] = s.hub.ClientCount()
	}

	if s.modbus != nil && s.healthConn != nil && (s.modbus.Anonymous() || s.store.IsAuthenticated()) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		h, err := s.modbus.Health(ctx, *s.healthConn)
		if err != nil {
			resp["status"] = "degraded"
			resp["modbus"] = map[string]any{
				"error": apiclient.MessageOf(err),
				"kind":  apiclient.KindOf(err),
			}
		} else {
			resp["modbus"] = h
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
