package main

import (
	"context"
	"fmt"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/device"
	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/database"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/infrastructure/metrics"
	"github.com/yenshow/ba-frontend/internal/modbus"
	"github.com/yenshow/ba-frontend/internal/rtsp"
	"github.com/yenshow/ba-frontend/internal/session"
	"github.com/yenshow/ba-frontend/migrations"
)

// console bundles the session and the backend gateways built on it. serve
// and the scripting commands share one construction path so they operate
// on the same persisted session.
type console struct {
	log *logging.Logger
	db  *database.DB

	store    *session.Store
	client   *apiclient.Client
	auth     *auth.Gateway
	users    *auth.UserClient
	modbus   *modbus.Gateway
	registry *modbus.Registry
	devices  *device.Client
	rtsp     *rtsp.Client
}

// openConsole opens persistence, restores the session and builds every
// gateway. onUnauthorized runs after the metrics hook when a call clears
// the session (nil is fine).
func openConsole(ctx context.Context, cfg *config.Config, log *logging.Logger, onUnauthorized func(apiclient.Invalidation)) (*console, error) {
	c := &console{log: log}

	if cfg.Session.Persistence == config.PersistenceSQLite {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		c.db = db
		log.Info("database connected", "path", cfg.Database.Path)

		if err := db.Migrate(ctx, migrations.FS); err != nil {
			c.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database migrations complete")
	}

	persister, err := session.NewPersister(cfg.Session, c.db)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.store = session.NewStore(session.Options{
		Persister: persister,
		TTL:       cfg.SessionTTL(),
		Logger:    log.With("component", "session"),
	})

	c.client, err = apiclient.New(apiclient.Options{
		BaseURL:            backendURL(cfg),
		Timeout:            cfg.RequestTimeout(),
		Session:            c.store,
		IncludeCredentials: cfg.Backend.IncludeCredentials,
		Observer:           metrics.Observer{},
		OnUnauthorized: func(inv apiclient.Invalidation) {
			metrics.RecordInvalidation(inv)
			log.Warn("session invalidated by backend",
				"method", inv.Method,
				"path", inv.Path,
				"return_path", inv.ReturnPath,
			)
			if onUnauthorized != nil {
				onUnauthorized(inv)
			}
		},
		Logger: log.With("component", "apiclient"),
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	c.auth = auth.NewGateway(c.client, c.store, log.With("component", "auth"))
	c.auth.Bootstrap(ctx)

	c.users = auth.NewUserClient(c.client)
	c.modbus = modbus.NewGateway(c.client, modbus.Options{
		Timeout:   cfg.ModbusTimeout(),
		Anonymous: !cfg.Backend.ModbusAuthenticated,
		Logger:    log.With("component", "modbus"),
	})
	c.registry = modbus.NewRegistry(c.client)
	c.devices = device.NewClient(c.client)
	c.rtsp = rtsp.NewClient(c.client)

	return c, nil
}

// Close releases persistence. Safe to call more than once.
func (c *console) Close() {
	if c.db == nil {
		return
	}
	c.log.Info("closing database")
	if err := c.db.Close(); err != nil {
		c.log.Error("error closing database", "error", err)
	}
	c.db = nil
}

// backendURL applies the loopback adjustment when the console is bound to
// a specific address other machines reach it on.
func backendURL(cfg *config.Config) string {
	if !cfg.Backend.AdjustLocalhost {
		return cfg.Backend.BaseURL
	}
	switch cfg.API.Host {
	case "", "0.0.0.0", "::":
		return cfg.Backend.BaseURL
	}
	return apiclient.AdjustBaseURL(cfg.Backend.BaseURL, cfg.API.Host)
}
