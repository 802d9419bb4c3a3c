package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yenshow/ba-frontend/internal/api"
	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/influxdb"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/infrastructure/mqtt"
	"github.com/yenshow/ba-frontend/internal/modbus"
	"github.com/yenshow/ba-frontend/internal/poller"
	"github.com/yenshow/ba-frontend/internal/session"
)

// startupHealthTimeout bounds the health checks run once everything is up.
const startupHealthTimeout = 5 * time.Second

// serve runs the console server until ctx is cancelled. Components are
// closed in reverse start order by the deferred calls.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The hub exists before the gateways so invalidations reach it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	c, err := openConsole(ctx, cfg, log, hub.NotifyInvalidation)
	if err != nil {
		return err
	}
	defer c.Close()

	points, err := poller.PointsFromConfig(cfg.Poller.Points)
	if err != nil {
		return fmt.Errorf("loading poller points: %w", err)
	}

	// Connect to MQTT broker
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT connection lost", "error", err)
		})
		publish := sessionPublisher(mqttClient, log)
		c.store.Subscribe(publish)
		sess, epoch := c.store.Snapshot()
		publish(session.Change{Session: sess, Epoch: epoch, Reason: session.ReasonRestored})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.Poller.Enabled {
		if err := startPoller(ctx, cfg, log, c, hub, points, mqttClient, influxClient); err != nil {
			return err
		}
	}

	if mqttClient != nil {
		bridge := poller.NewCommandBridge(c.modbus, points, log)
		if err := bridge.Subscribe(mqttClient); err != nil {
			return fmt.Errorf("subscribing coil commands: %w", err)
		}
		log.Info("MQTT coil command bridge ready", "devices", len(points))
	}

	srv, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Metrics:     cfg.Metrics,
		Logger:      log,
		Auth:        c.auth,
		Users:       c.users,
		Modbus:      c.modbus,
		Devices:     c.devices,
		HealthConn:  healthConnection(points),
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating console server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting console server: %w", err)
	}
	defer func() {
		log.Info("stopping console server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing console server", "error", closeErr)
		}
	}()

	runHealthChecks(ctx, log, c, srv, mqttClient, influxClient)

	log.Info("BA console started",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"backend", cfg.Backend.BaseURL,
		"authenticated", c.store.IsAuthenticated(),
	)

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// startPoller wires the configured sinks and runs the poller in the
// background until ctx ends.
func startPoller(ctx context.Context, cfg *config.Config, log *logging.Logger, c *console, hub *api.Hub,
	points []poller.Point, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	sinks := []poller.Sink{
		poller.SinkFunc(func(s poller.Sample) error {
			hub.Broadcast(api.EventModbusSample, s)
			return nil
		}),
	}
	if mqttClient != nil {
		sinks = append(sinks, poller.MQTTSink(mqttClient))
	}
	if influxClient != nil {
		sinks = append(sinks, poller.InfluxSink(influxClient))
	}

	var active func() bool
	if !c.modbus.Anonymous() {
		active = c.store.IsAuthenticated
	}

	p, err := poller.New(poller.Options{
		Reader:      c.modbus,
		Points:      points,
		Interval:    cfg.PollInterval(),
		Concurrency: cfg.Poller.Concurrency,
		Sinks:       sinks,
		Active:      active,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}

	go func() {
		if runErr := p.Run(ctx); runErr != nil {
			log.Error("poller stopped", "error", runErr)
		}
	}()
	log.Info("poller started", "points", len(points), "interval", cfg.PollInterval())
	return nil
}

// sessionEvent is the MQTT projection of a session change. The token is
// never published.
type sessionEvent struct {
	Reason        session.Reason `json:"reason"`
	Epoch         uint64         `json:"epoch"`
	Authenticated bool           `json:"authenticated"`
	Username      string         `json:"username,omitempty"`
	Role          session.Role   `json:"role,omitempty"`
	At            time.Time      `json:"at"`
}

// sessionPublisher mirrors session changes onto the retained session topic
// so dashboards know whether the console can reach the backend.
func sessionPublisher(client *mqtt.Client, log *logging.Logger) func(session.Change) {
	return func(ch session.Change) {
		ev := sessionEvent{
			Reason:        ch.Reason,
			Epoch:         ch.Epoch,
			Authenticated: ch.Session.IsAuthenticated(),
			At:            time.Now().UTC(),
		}
		if ev.Authenticated {
			ev.Username = ch.Session.User.Username
			ev.Role = ch.Session.User.Role
		}
		if err := client.PublishJSON(mqtt.Topics{}.Session(), ev, true); err != nil {
			log.Warn("failed to publish session change", "reason", ch.Reason, "error", err)
		}
	}
}

// healthConnection picks the Modbus endpoint the health route probes: the
// first polled device, if any.
func healthConnection(points []poller.Point) *modbus.Connection {
	if len(points) == 0 {
		return nil
	}
	conn := points[0].Conn
	return &conn
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// runHealthChecks logs the state of every started component. Failures are
// reported but do not stop the console.
func runHealthChecks(ctx context.Context, log *logging.Logger, c *console, srv *api.Server,
	mqttClient *mqtt.Client, influxClient *influxdb.Client) {
	ctx, cancel := context.WithTimeout(ctx, startupHealthTimeout)
	defer cancel()

	checks := []healthCheck{{"console server", srv.HealthCheck}}
	if c.db != nil {
		checks = append(checks, healthCheck{"database", c.db.HealthCheck})
	}
	if mqttClient != nil {
		checks = append(checks, healthCheck{"MQTT", mqttClient.HealthCheck})
	}
	if influxClient != nil {
		checks = append(checks, healthCheck{"InfluxDB", influxClient.HealthCheck})
	}

	for _, hc := range checks {
		if err := hc.check(ctx); err != nil {
			log.Warn("health check failed", "component", hc.name, "error", err)
			continue
		}
		log.Debug("health check passed", "component", hc.name)
	}

	if !c.store.IsAuthenticated() && !c.modbus.Anonymous() {
		log.Info("no session: log in through the console before Modbus calls",
			"login", apiclient.LoginRedirect("/"))
	}
}
