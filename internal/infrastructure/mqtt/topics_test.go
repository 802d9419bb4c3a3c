package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
)

// =============================================================================
// Topic Builders
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", topics.Status(), "ba-console/status"},
		{"session", topics.Session(), "ba-console/session"},
		{"sample", topics.ModbusSample("plc-1", "coils", 4), "ba-console/modbus/plc-1/coils/4"},
		{"sample unsafe id", topics.ModbusSample("a/b+#", "input-registers", 0), "ba-console/modbus/a_b__/input-registers/0"},
		{"coil command", topics.CoilCommand("plc-1", 12), "ba-console/command/modbus/plc-1/coils/12"},
		{"all samples", topics.AllModbusSamples(), "ba-console/modbus/#"},
		{"all commands", topics.AllCoilCommands(), "ba-console/command/modbus/+/coils/+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseCoilCommand(t *testing.T) {
	dev, addr, err := ParseCoilCommand(Topics{}.CoilCommand("plc-1", 65535))
	if err != nil || dev != "plc-1" || addr != 65535 {
		t.Fatalf("ParseCoilCommand() = %q, %d, %v", dev, addr, err)
	}

	for _, bad := range []string{
		"ba-console/command/modbus/plc-1/coils/70000",
		"ba-console/command/modbus/plc-1/holding-registers/1",
		"ba-console/command/modbus//coils/1",
		"other/command/modbus/plc-1/coils/1",
		"ba-console/modbus/plc-1/coils/1",
	} {
		if _, _, err := ParseCoilCommand(bad); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ParseCoilCommand(%q) error = %v", bad, err)
		}
	}
}

// =============================================================================
// Options
// =============================================================================

func TestBrokerURL(t *testing.T) {
	cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true}}
	if got := brokerURL(cfg); got != "ssl://broker.local:8883" {
		t.Errorf("brokerURL() = %q", got)
	}
	cfg.Broker.TLS = false
	cfg.Broker.Port = 1883
	if got := brokerURL(cfg); got != "tcp://broker.local:1883" {
		t.Errorf("brokerURL() = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "console", Password: "secret"}
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != cfg.Broker.ClientID || opts.Username != "console" || !opts.AutoReconnect {
		t.Errorf("options = %+v", opts)
	}

	configureLWT(opts, cfg.Broker.ClientID)
	if !opts.WillEnabled || opts.WillTopic != "ba-console/status" || !opts.WillRetained {
		t.Errorf("LWT not configured: topic=%q retained=%v", opts.WillTopic, opts.WillRetained)
	}
	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("LWT payload: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" {
		t.Errorf("LWT payload = %+v", msg)
	}
}
