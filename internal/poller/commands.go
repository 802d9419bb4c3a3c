package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/infrastructure/mqtt"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

// commandTimeout bounds one coil write triggered over MQTT.
const commandTimeout = 10 * time.Second

// CoilWriter is the part of the Modbus gateway the command bridge uses.
type CoilWriter interface {
	WriteCoil(ctx context.Context, address uint16, value bool, conn modbus.Connection) (*modbus.WriteResult, error)
}

// Subscriber is the part of the MQTT client the command bridge uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// coilCommand is the payload of a coil command message.
type coilCommand struct {
	Value *bool `json:"value"`
}

// CommandBridge turns MQTT coil commands into gateway coil writes. Only
// devices that are also polled are addressable; their connection comes
// from the poll configuration.
type CommandBridge struct {
	writer  CoilWriter
	devices map[string]modbus.Connection
	logger  *logging.Logger
}

// NewCommandBridge indexes the polled devices by ID.
func NewCommandBridge(writer CoilWriter, points []Point, logger *logging.Logger) *CommandBridge {
	if logger == nil {
		logger = logging.Discard()
	}
	devices := make(map[string]modbus.Connection, len(points))
	for _, p := range points {
		devices[p.DeviceID] = p.Conn
	}
	return &CommandBridge{writer: writer, devices: devices, logger: logger.With("component", "command_bridge")}
}

// Subscribe registers the bridge on every coil command topic.
func (b *CommandBridge) Subscribe(sub Subscriber) error {
	return sub.Subscribe(mqtt.Topics{}.AllCoilCommands(), 1, b.Handle)
}

// Handle executes one coil command. It satisfies mqtt.MessageHandler.
func (b *CommandBridge) Handle(topic string, payload []byte) error {
	deviceID, address, err := mqtt.ParseCoilCommand(topic)
	if err != nil {
		return err
	}
	conn, ok := b.devices[deviceID]
	if !ok {
		return fmt.Errorf("%w: unknown device %q", ErrInvalidPoint, deviceID)
	}
	var cmd coilCommand
	if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Value == nil {
		return fmt.Errorf("coil command on %s: payload must be {\"value\": true|false}", topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := b.writer.WriteCoil(ctx, address, *cmd.Value, conn); err != nil {
		return fmt.Errorf("coil command on %s: %w", topic, err)
	}
	b.logger.Info("coil written from mqtt command", "device", deviceID, "address", address, "value", *cmd.Value)
	return nil
}
