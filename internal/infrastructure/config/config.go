package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the BA console.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Poller    PollerConfig    `yaml:"poller"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// BackendConfig describes the building-automation backend the gateways talk to.
type BackendConfig struct {
	// BaseURL is the REST root, e.g. "http://localhost:4000/api".
	BaseURL string `yaml:"base_url"`

	// RequestTimeoutMS bounds every generic gateway call. Default: 10000.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`

	// ModbusTimeoutMS bounds every Modbus facade call. Default: 5000.
	ModbusTimeoutMS int `yaml:"modbus_timeout_ms"`

	// IncludeCredentials keeps backend cookies across calls.
	IncludeCredentials bool `yaml:"include_credentials"`

	// ModbusAuthenticated sends the session token on Modbus calls.
	// When false the Modbus gateway runs anonymously.
	ModbusAuthenticated bool `yaml:"modbus_authenticated"`

	// AdjustLocalhost rewrites a localhost base URL to the host the console
	// is served from.
	AdjustLocalhost bool `yaml:"adjust_localhost"`
}

// SessionConfig controls where the persisted session slot lives.
type SessionConfig struct {
	// Persistence is one of "sqlite", "file" or "memory".
	Persistence string `yaml:"persistence"`
	FilePath    string `yaml:"file_path"`
	TTLHours    int    `yaml:"ttl_hours"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains local console HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// PollerConfig lists the Modbus points sampled in the background.
type PollerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	IntervalMS  int           `yaml:"interval_ms"`
	Concurrency int           `yaml:"concurrency"`
	Points      []PointConfig `yaml:"points"`
}

// PointConfig is one polled address window on one Modbus endpoint.
type PointConfig struct {
	DeviceID string `yaml:"device_id"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UnitID   int    `yaml:"unit_id"`
	Space    string `yaml:"space"`
	Address  int    `yaml:"address"`
	Length   int    `yaml:"length"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Session persistence modes.
const (
	PersistenceSQLite = "sqlite"
	PersistenceFile   = "file"
	PersistenceMemory = "memory"
)

// minPollInterval keeps the poller from hammering the Modbus facade.
const minPollInterval = 100

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BACONSOLE_SECTION_KEY
// For example: BACONSOLE_BACKEND_URL, BACONSOLE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. It is also what the CLI
// uses when no config file is given.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:             "http://localhost:4000/api",
			RequestTimeoutMS:    10000,
			ModbusTimeoutMS:     5000,
			IncludeCredentials:  true,
			ModbusAuthenticated: true,
			AdjustLocalhost:     true,
		},
		Session: SessionConfig{
			Persistence: PersistenceSQLite,
			FilePath:    "./data/session.json",
			TTLHours:    24 * 7,
		},
		Database: DatabaseConfig{
			Path:        "./data/baconsole.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ba-console",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Poller: PollerConfig{
			IntervalMS:  2000,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BACONSOLE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACONSOLE_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACONSOLE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BACONSOLE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("BACONSOLE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("BACONSOLE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BACONSOLE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BACONSOLE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("BACONSOLE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("BACONSOLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "backend.base_url must be an absolute http(s) URL")
	}
	if c.Backend.RequestTimeoutMS <= 0 {
		errs = append(errs, "backend.request_timeout_ms must be positive")
	}
	if c.Backend.ModbusTimeoutMS <= 0 {
		errs = append(errs, "backend.modbus_timeout_ms must be positive")
	}

	switch c.Session.Persistence {
	case PersistenceSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for sqlite session persistence")
		}
	case PersistenceFile:
		if c.Session.FilePath == "" {
			errs = append(errs, "session.file_path is required for file session persistence")
		}
	case PersistenceMemory:
	default:
		errs = append(errs, "session.persistence must be sqlite, file, or memory")
	}
	if c.Session.TTLHours <= 0 {
		errs = append(errs, "session.ttl_hours must be positive")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Poller.Enabled {
		if c.Poller.IntervalMS < minPollInterval {
			errs = append(errs, fmt.Sprintf("poller.interval_ms must be at least %d", minPollInterval))
		}
		for i, p := range c.Poller.Points {
			if p.Host == "" {
				errs = append(errs, fmt.Sprintf("poller.points[%d].host is required", i))
			}
			if p.Length < 1 {
				errs = append(errs, fmt.Sprintf("poller.points[%d].length must be at least 1", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RequestTimeout returns the generic gateway timeout as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutMS) * time.Millisecond
}

// ModbusTimeout returns the Modbus gateway timeout as a Duration.
func (c *Config) ModbusTimeout() time.Duration {
	return time.Duration(c.Backend.ModbusTimeoutMS) * time.Millisecond
}

// SessionTTL returns the persisted session expiry window.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// PollInterval returns the poller cycle interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
