package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/device"
	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/modbus"
	"github.com/yenshow/ba-frontend/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the console server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Metrics config.MetricsConfig
	Logger  *logging.Logger

	// Auth owns the session; its store drives the route guard.
	Auth *auth.Gateway

	// Optional gateways. Routes that need a missing one answer 503.
	Users   *auth.UserClient
	Modbus  *modbus.Gateway
	Devices *device.Client

	// HealthConn is the Modbus endpoint probed by GET /api/v1/health.
	HealthConn *modbus.Connection

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the local console HTTP server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger

	auth       *auth.Gateway
	store      *session.Store
	users      *auth.UserClient
	modbus     *modbus.Gateway
	devices    *device.Client
	healthConn *modbus.Connection

	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
	now         func() time.Time
}

// New creates a new console server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth gateway is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger.With("component", "api"),
		auth:       deps.Auth,
		store:      deps.Auth.Store(),
		users:      deps.Users,
		modbus:     deps.Modbus,
		devices:    deps.Devices,
		healthConn: deps.HealthConn,
		version:    deps.Version,
		now:        time.Now,
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, or nil before Start when none
// was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays session changes to the "session"
// channel, and launches the HTTP listener in a background goroutine. The
// server can be stopped with Close().
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	s.store.Subscribe(s.relaySessionChange)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("console server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("console server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("console server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("console server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down console server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("console server not started")
	}

	return nil
}

// relaySessionChange forwards store mutations to WebSocket subscribers.
// Invalidations are announced by Hub.NotifyInvalidation, which knows the
// return path. Tokens never leave the process.
func (s *Server) relaySessionChange(c session.Change) {
	if s.hub == nil || c.Reason == session.ReasonInvalidated {
		return
	}
	payload := map[string]any{
		"reason":          c.Reason,
		"epoch":           c.Epoch,
		"isAuthenticated": c.Session.IsAuthenticated(),
	}
	if c.Session.User != nil {
		payload["user"] = c.Session.User
	}
	s.hub.Broadcast(EventSessionChanged, payload)
}
