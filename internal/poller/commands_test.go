package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/yenshow/ba-frontend/internal/infrastructure/mqtt"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

type fakeWriter struct {
	address uint16
	value   bool
	conn    modbus.Connection
	calls   int
	err     error
}

func (f *fakeWriter) WriteCoil(_ context.Context, address uint16, value bool, conn modbus.Connection) (*modbus.WriteResult, error) {
	f.calls++
	f.address, f.value, f.conn = address, value, conn
	if f.err != nil {
		return nil, f.err
	}
	return &modbus.WriteResult{Address: address, Value: &value, Success: true}, nil
}

type fakeSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.topic, f.handler = topic, handler
	return nil
}

func TestCommandBridge(t *testing.T) {
	writer := &fakeWriter{}
	bridge := NewCommandBridge(writer, []Point{point("plc-1")}, nil)

	sub := &fakeSubscriber{}
	if err := bridge.Subscribe(sub); err != nil {
		t.Fatal(err)
	}
	if sub.topic != (mqtt.Topics{}).AllCoilCommands() {
		t.Errorf("subscribed to %q", sub.topic)
	}

	if err := sub.handler(mqtt.Topics{}.CoilCommand("plc-1", 7), []byte(`{"value":false}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if writer.calls != 1 || writer.address != 7 || writer.value || writer.conn.Host != "plc-1" {
		t.Errorf("write = %+v", writer)
	}

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"unknown device", mqtt.Topics{}.CoilCommand("plc-9", 1), `{"value":true}`},
		{"missing value", mqtt.Topics{}.CoilCommand("plc-1", 1), `{}`},
		{"bad json", mqtt.Topics{}.CoilCommand("plc-1", 1), `on`},
		{"bad topic", "ba-console/command/modbus/plc-1/coils/x", `{"value":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := writer.calls
			if err := bridge.Handle(tt.topic, []byte(tt.payload)); err == nil {
				t.Error("Handle() error = nil")
			}
			if writer.calls != before {
				t.Error("writer called for a rejected command")
			}
		})
	}

	writer.err = errors.New("facade down")
	if err := bridge.Handle(mqtt.Topics{}.CoilCommand("plc-1", 2), []byte(`{"value":true}`)); !errors.Is(err, writer.err) {
		t.Errorf("Handle() error = %v", err)
	}
}
