package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

// Config is the type-specific part of a device.
type Config interface {
	TypeCode() TypeCode
}

// ControllerConfig is a Modbus TCP controller.
type ControllerConfig struct {
	Host   string `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port   uint16 `json:"port" validate:"required"`
	UnitID uint8  `json:"unitId"`
}

// TypeCode implements Config.
func (ControllerConfig) TypeCode() TypeCode { return TypeController }

// ModbusConnection returns the facade connection for the controller.
func (c ControllerConfig) ModbusConnection() (modbus.Connection, error) {
	return modbus.Connection{Host: c.Host, Port: c.Port, UnitID: c.UnitID}, nil
}

// CameraConfig is an IP camera.
type CameraConfig struct {
	RTSPURL   string `json:"rtsp_url,omitempty" validate:"omitempty,url"`
	IPAddress string `json:"ip_address" validate:"required,hostname_rfc1123|ip"`
	Port      uint16 `json:"port,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
}

// TypeCode implements Config.
func (CameraConfig) TypeCode() TypeCode { return TypeCamera }

// Sensor protocols.
const (
	ProtocolModbus = "modbus"
	ProtocolHTTP   = "http"
	ProtocolMQTT   = "mqtt"
)

// SensorConfig is a sensor reached over Modbus, HTTP or MQTT.
type SensorConfig struct {
	Protocol         string `json:"protocol" validate:"required,oneof=modbus http mqtt"`
	Host             string `json:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Port             uint16 `json:"port,omitempty"`
	UnitID           *uint8 `json:"unitId,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
	APIEndpoint      string `json:"api_endpoint,omitempty"`
}

// TypeCode implements Config.
func (SensorConfig) TypeCode() TypeCode { return TypeSensor }

// ModbusConnection returns the facade connection of a Modbus sensor.
func (c SensorConfig) ModbusConnection() (modbus.Connection, error) {
	if c.Protocol != ProtocolModbus || c.Host == "" || c.Port == 0 {
		return modbus.Connection{}, ErrNotModbus
	}
	conn := modbus.Connection{Host: c.Host, Port: c.Port}
	if c.UnitID != nil {
		conn.UnitID = *c.UnitID
	}
	return conn, nil
}

// TabletConfig is a wall or desk tablet running the console.
type TabletConfig struct {
	MACAddress string `json:"mac_address" validate:"required,mac"`
	IPAddress  string `json:"ip_address,omitempty" validate:"omitempty,ip"`
	Location   string `json:"location,omitempty"`
}

// TypeCode implements Config.
func (TabletConfig) TypeCode() TypeCode { return TypeTablet }

// NetworkConfig is a router, switch or access point.
type NetworkConfig struct {
	IPAddress  string `json:"ip_address" validate:"required,ip"`
	MACAddress string `json:"mac_address,omitempty" validate:"omitempty,mac"`
	DeviceType string `json:"device_type" validate:"required,oneof=router switch access_point other"`
	Port       uint16 `json:"port,omitempty"`
}

// TypeCode implements Config.
func (NetworkConfig) TypeCode() TypeCode { return TypeNetwork }

// modbusEndpoint is implemented by configs that can address the facade.
type modbusEndpoint interface {
	ModbusConnection() (modbus.Connection, error)
}

// ModbusConnection returns the device's Modbus endpoint.
func (d Device) ModbusConnection() (modbus.Connection, error) {
	if ep, ok := d.Config.(modbusEndpoint); ok {
		return ep.ModbusConnection()
	}
	return modbus.Connection{}, ErrNotModbus
}

// Legacy key spellings and their canonical names.
var configAliases = map[string]string{
	"unit_id":    "unitId",
	"unitID":     "unitId",
	"ip":         "ip_address",
	"ipAddress":  "ip_address",
	"rtspUrl":    "rtsp_url",
	"macAddress": "mac_address",
}

// numericKeys are sometimes stored as strings.
var numericKeys = []string{"port", "unitId"}

// DecodeConfig decodes a stored config object into its typed variant.
// typeCode selects the variant; when empty, the object's own "type" field
// is used. Legacy spellings are normalised first: unit_id and unitID
// become unitId, ip becomes ip_address, and numeric strings in port and
// unitId become numbers.
//
// Returns:
//   - Config: one of the *Config variants, by value
//   - error: ErrUnknownTypeCode or ErrInvalidConfig
func DecodeConfig(typeCode TypeCode, raw []byte) (Config, error) {
	fields, err := normalizeConfig(raw)
	if err != nil {
		return nil, err
	}

	if typeCode == "" {
		if t, ok := fields["type"].(string); ok {
			typeCode = TypeCode(t)
		}
	}
	delete(fields, "type")

	var cfg Config
	switch typeCode {
	case TypeController:
		cfg, err = decodeVariant[ControllerConfig](fields)
	case TypeCamera:
		cfg, err = decodeVariant[CameraConfig](fields)
	case TypeSensor:
		cfg, err = decodeVariant[SensorConfig](fields)
	case TypeTablet:
		cfg, err = decodeVariant[TabletConfig](fields)
	case TypeNetwork:
		cfg, err = decodeVariant[NetworkConfig](fields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTypeCode, typeCode)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfig renders a config with its "type" tag.
func EncodeConfig(c Config) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(c.TypeCode())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}

// ValidateConfig checks a config before it is sent to the backend.
func ValidateConfig(c Config) error {
	if err := apiclient.Validate(c); err != nil {
		return err
	}
	if s, ok := c.(SensorConfig); ok && s.Protocol == ProtocolModbus && (s.Host == "" || s.Port == 0) {
		return apiclient.NewBadRequest("modbus sensor requires host and port")
	}
	return nil
}

func normalizeConfig(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidConfig)
	}

	for alias, canonical := range configAliases {
		v, ok := fields[alias]
		if !ok {
			continue
		}
		delete(fields, alias)
		if _, exists := fields[canonical]; !exists {
			fields[canonical] = v
		}
	}

	for _, key := range numericKeys {
		s, ok := fields[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			delete(fields, key)
			continue
		}
		if _, err := strconv.ParseUint(s, 10, 16); err != nil {
			return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidConfig, key, s)
		}
		fields[key] = json.Number(s)
	}
	return fields, nil
}

func decodeVariant[T Config](fields map[string]any) (Config, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return out, nil
}
