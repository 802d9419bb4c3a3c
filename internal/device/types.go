package device

import (
	"encoding/json"
)

// TypeCode identifies a device category and selects its config shape.
type TypeCode string

// Device type codes.
const (
	TypeCamera     TypeCode = "camera"
	TypeController TypeCode = "controller"
	TypeSensor     TypeCode = "sensor"
	TypeTablet     TypeCode = "tablet"
	TypeNetwork    TypeCode = "network"
)

// TypeCodes lists every known type code.
var TypeCodes = []TypeCode{TypeCamera, TypeController, TypeSensor, TypeTablet, TypeNetwork}

// Valid reports whether c is a known type code.
func (c TypeCode) Valid() bool {
	for _, known := range TypeCodes {
		if c == known {
			return true
		}
	}
	return false
}

// Status is a device's operational status.
type Status string

// Device statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusError    Status = "error"
)

// Device is one registry entry.
//
// Config is the decoded variant, or nil when the type code is unknown or
// the stored object could not be decoded. RawConfig always holds the
// object as the backend sent it.
type Device struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	TypeID      int64    `json:"type_id"`
	ModelID     int64    `json:"model_id,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	TypeCode    TypeCode `json:"type_code,omitempty"`
	TypeName    string   `json:"type_name,omitempty"`
	ModelName   string   `json:"model_name,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`

	Config    Config          `json:"-"`
	RawConfig json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a device and normalises its config.
func (d *Device) UnmarshalJSON(data []byte) error {
	type plain Device
	aux := struct {
		*plain
		Config json.RawMessage `json:"config"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.RawConfig = aux.Config
	d.Config = nil
	if len(aux.Config) == 0 || string(aux.Config) == "null" {
		return nil
	}
	cfg, err := DecodeConfig(d.TypeCode, aux.Config)
	if err == nil {
		d.Config = cfg
		if d.TypeCode == "" {
			d.TypeCode = cfg.TypeCode()
		}
	}
	return nil
}

// MarshalJSON encodes the device with its normalised config.
func (d Device) MarshalJSON() ([]byte, error) {
	type plain Device
	raw := d.RawConfig
	if d.Config != nil {
		encoded, err := EncodeConfig(d.Config)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(struct {
		plain
		Config json.RawMessage `json:"config,omitempty"`
	}{plain: plain(d), Config: raw})
}

// Type is a device category.
type Type struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Code        TypeCode `json:"code"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Model is a vendor model within a device type. Its config holds
// model-level defaults and is kept free-form.
type Model struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	TypeID      int64          `json:"type_id"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	TypeName    string         `json:"type_name,omitempty"`
	TypeCode    TypeCode       `json:"type_code,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
}

// Filter narrows GET /devices.
type Filter struct {
	TypeID   int64
	TypeCode TypeCode
	Status   Status
	Limit    *int
	Offset   *int
	OrderBy  string
	Order    string
}

// ModelFilter narrows GET /devices/models.
type ModelFilter struct {
	TypeID   int64
	TypeCode TypeCode
}

// Input creates or updates a device. On update, zero fields are omitted
// and left unchanged.
type Input struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=128"`
	TypeID      int64  `json:"type_id,omitempty"`
	ModelID     int64  `json:"model_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status,omitempty" validate:"omitempty,oneof=active inactive error"`
	Config      Config `json:"-"`
}

// MarshalJSON encodes the input with its config tagged by type code.
func (in Input) MarshalJSON() ([]byte, error) {
	type plain Input
	var raw json.RawMessage
	if in.Config != nil {
		encoded, err := EncodeConfig(in.Config)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(struct {
		plain
		Config json.RawMessage `json:"config,omitempty"`
	}{plain: plain(in), Config: raw})
}

// ModelInput creates or updates a device model.
type ModelInput struct {
	Name        string         `json:"name,omitempty" validate:"omitempty,max=128"`
	TypeID      int64          `json:"type_id,omitempty"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}
