package device

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

func TestDecodeConfig(t *testing.T) {
	unit := uint8(4)
	tests := []struct {
		name     string
		typeCode TypeCode
		raw      string
		want     Config
		wantErr  error
	}{
		{
			name:     "controller canonical",
			typeCode: TypeController,
			raw:      `{"host":"10.0.0.5","port":502,"unitId":1}`,
			want:     ControllerConfig{Host: "10.0.0.5", Port: 502, UnitID: 1},
		},
		{
			name:     "controller legacy spellings",
			typeCode: TypeController,
			raw:      `{"host":"10.0.0.5","port":"502","unit_id":"3"}`,
			want:     ControllerConfig{Host: "10.0.0.5", Port: 502, UnitID: 3},
		},
		{
			name:     "unitID alias and type from object",
			typeCode: "",
			raw:      `{"type":"controller","host":"plc.local","port":1502,"unitID":9}`,
			want:     ControllerConfig{Host: "plc.local", Port: 1502, UnitID: 9},
		},
		{
			name:     "canonical wins over alias",
			typeCode: TypeController,
			raw:      `{"host":"h","port":502,"unitId":2,"unit_id":7}`,
			want:     ControllerConfig{Host: "h", Port: 502, UnitID: 2},
		},
		{
			name:     "camera ip alias",
			typeCode: TypeCamera,
			raw:      `{"ip":"192.168.1.20","rtsp_url":"rtsp://192.168.1.20/stream1","port":"554"}`,
			want:     CameraConfig{IPAddress: "192.168.1.20", RTSPURL: "rtsp://192.168.1.20/stream1", Port: 554},
		},
		{
			name:     "modbus sensor",
			typeCode: TypeSensor,
			raw:      `{"protocol":"modbus","host":"10.0.0.8","port":502,"unitId":4}`,
			want:     SensorConfig{Protocol: ProtocolModbus, Host: "10.0.0.8", Port: 502, UnitID: &unit},
		},
		{
			name:     "tablet",
			typeCode: TypeTablet,
			raw:      `{"mac_address":"aa:bb:cc:dd:ee:ff","location":"lobby"}`,
			want:     TabletConfig{MACAddress: "aa:bb:cc:dd:ee:ff", Location: "lobby"},
		},
		{
			name:     "network",
			typeCode: TypeNetwork,
			raw:      `{"ip_address":"10.0.0.1","device_type":"router"}`,
			want:     NetworkConfig{IPAddress: "10.0.0.1", DeviceType: "router"},
		},
		{
			name:     "unknown type",
			typeCode: "fridge",
			raw:      `{}`,
			wantErr:  ErrUnknownTypeCode,
		},
		{
			name:     "non-numeric port",
			typeCode: TypeController,
			raw:      `{"host":"h","port":"modbus"}`,
			wantErr:  ErrInvalidConfig,
		},
		{
			name:     "port out of range",
			typeCode: TypeController,
			raw:      `{"host":"h","port":70000}`,
			wantErr:  ErrInvalidConfig,
		},
		{
			name:     "not an object",
			typeCode: TypeController,
			raw:      `[1,2]`,
			wantErr:  ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig(tt.typeCode, []byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeConfig() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeConfigTagsType(t *testing.T) {
	body, err := EncodeConfig(ControllerConfig{Host: "h", Port: 502, UnitID: 0})
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["type"] != "controller" || fields["unitId"] != float64(0) {
		t.Errorf("encoded = %s", body)
	}

	back, err := DecodeConfig("", body)
	if err != nil || back != (ControllerConfig{Host: "h", Port: 502}) {
		t.Errorf("round trip = %#v, %v", back, err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"controller", ControllerConfig{Host: "10.0.0.5", Port: 502}, true},
		{"controller no port", ControllerConfig{Host: "10.0.0.5"}, false},
		{"controller bad host", ControllerConfig{Host: "not a host", Port: 502}, false},
		{"camera bad ip", CameraConfig{IPAddress: "///"}, false},
		{"sensor http", SensorConfig{Protocol: ProtocolHTTP, APIEndpoint: "/v1/temp"}, true},
		{"sensor modbus without host", SensorConfig{Protocol: ProtocolModbus}, false},
		{"sensor bad protocol", SensorConfig{Protocol: "zigbee"}, false},
		{"tablet bad mac", TabletConfig{MACAddress: "nope"}, false},
		{"network bad kind", NetworkConfig{IPAddress: "10.0.0.1", DeviceType: "modem"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.ok && err != nil {
				t.Fatalf("ValidateConfig() error = %v", err)
			}
			if !tt.ok && apiclient.KindOf(err) != apiclient.KindBadRequest {
				t.Fatalf("ValidateConfig() kind = %q, want bad_request", apiclient.KindOf(err))
			}
		})
	}
}

func TestDeviceModbusConnection(t *testing.T) {
	var d Device
	raw := `{"id":3,"name":"PLC","type_id":2,"status":"active","type_code":"controller","config":{"host":"10.0.0.5","port":"502","unit_id":2}}`
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatal(err)
	}
	conn, err := d.ModbusConnection()
	if err != nil {
		t.Fatalf("ModbusConnection() error = %v", err)
	}
	if conn != (modbus.Connection{Host: "10.0.0.5", Port: 502, UnitID: 2}) {
		t.Errorf("conn = %+v", conn)
	}

	cam := Device{Config: CameraConfig{IPAddress: "10.0.0.9"}}
	if _, err := cam.ModbusConnection(); !errors.Is(err, ErrNotModbus) {
		t.Errorf("camera error = %v", err)
	}
	httpSensor := Device{Config: SensorConfig{Protocol: ProtocolHTTP}}
	if _, err := httpSensor.ModbusConnection(); !errors.Is(err, ErrNotModbus) {
		t.Errorf("http sensor error = %v", err)
	}
}

func TestDeviceKeepsUndecodableConfig(t *testing.T) {
	var d Device
	raw := `{"id":1,"name":"odd","type_id":9,"status":"active","type_code":"fridge","config":{"temp":4}}`
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d.Config != nil {
		t.Errorf("Config = %#v, want nil", d.Config)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	json.Unmarshal(out, &back) //nolint:errcheck // checked below
	if cfg, _ := back["config"].(map[string]any); cfg["temp"] != float64(4) {
		t.Errorf("raw config lost: %s", out)
	}
}
