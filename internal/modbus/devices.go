package modbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

// Registry paths.
const (
	pathDevices      = "/modbus/devices"
	pathDeviceTypes  = "/modbus/device-types"
	pathDeviceModels = "/modbus/device-models"
)

// Device is a Modbus endpoint registered on the backend.
type Device struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        uint16 `json:"port"`
	UnitID      uint8  `json:"unit_id"`
	TypeID      int64  `json:"type_id,omitempty"`
	ModelID     int64  `json:"model_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	TypeName    string `json:"type_name,omitempty"`
	ModelName   string `json:"model_name,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// UnmarshalJSON accepts both unit_id and the facade's unitId spelling.
func (d *Device) UnmarshalJSON(data []byte) error {
	type plain Device
	aux := struct {
		*plain
		UnitIDCamel *uint8 `json:"unitId"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.UnitIDCamel != nil && d.UnitID == 0 {
		d.UnitID = *aux.UnitIDCamel
	}
	return nil
}

// Connection returns the facade connection for the device.
func (d Device) Connection() Connection {
	return Connection{Host: d.Host, Port: d.Port, UnitID: d.UnitID}
}

// DeviceInput creates or replaces a registry device. On update, zero
// fields are omitted and left unchanged.
type DeviceInput struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=128"`
	Host        string `json:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Port        uint16 `json:"port,omitempty"`
	UnitID      *uint8 `json:"unit_id,omitempty"`
	TypeID      int64  `json:"type_id,omitempty"`
	ModelID     int64  `json:"model_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=active inactive error"`
}

func (in DeviceInput) validateCreate() error {
	switch {
	case in.Name == "":
		return apiclient.NewBadRequest("name is required")
	case in.Host == "":
		return apiclient.NewBadRequest("host is required")
	case in.Port == 0:
		return apiclient.NewBadRequest("port is required")
	}
	return apiclient.Validate(in)
}

// DeviceFilter narrows GET /modbus/devices.
type DeviceFilter struct {
	Status  string
	Limit   *int
	Offset  *int
	OrderBy string
	Order   string
}

// DeviceType is a read-only Modbus device category.
type DeviceType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// DeviceModel is a vendor model of a Modbus device type.
type DeviceModel struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	TypeID      int64          `json:"type_id"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	TypeName    string         `json:"type_name,omitempty"`
	TypeCode    string         `json:"type_code,omitempty"`
}

// DeviceModelInput creates or updates a device model.
type DeviceModelInput struct {
	Name        string         `json:"name,omitempty" validate:"omitempty,max=128"`
	TypeID      int64          `json:"type_id,omitempty"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

func (in DeviceModelInput) validateCreate() error {
	if in.Name == "" {
		return apiclient.NewBadRequest("name is required")
	}
	if in.TypeID == 0 {
		return apiclient.NewBadRequest("type_id is required")
	}
	return apiclient.Validate(in)
}

// Registry manages the backend's Modbus device records.
type Registry struct {
	client *apiclient.Client
}

// NewRegistry creates a Registry on the shared request gateway.
func NewRegistry(client *apiclient.Client) *Registry {
	return &Registry{client: client}
}

// ListDevices returns one page of registered devices.
func (r *Registry) ListDevices(ctx context.Context, f DeviceFilter) (*apiclient.Page[Device], error) {
	q := apiclient.Values{}
	q.Set("status", f.Status).
		Set("limit", f.Limit).
		Set("offset", f.Offset).
		Set("orderBy", f.OrderBy).
		Set("order", f.Order)

	var page apiclient.Page[Device]
	if err := r.client.Get(ctx, pathDevices, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetDevice returns one device.
func (r *Registry) GetDevice(ctx context.Context, id int64) (*Device, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, itemPath(pathDevices, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// CreateDevice registers a device.
func (r *Registry) CreateDevice(ctx context.Context, in DeviceInput) (*Device, error) {
	if err := in.validateCreate(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := r.client.Post(ctx, pathDevices, in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// UpdateDevice changes a device.
func (r *Registry) UpdateDevice(ctx context.Context, id int64, in DeviceInput) (*Device, error) {
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := r.client.Put(ctx, itemPath(pathDevices, id), in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, itemPath(pathDevices, id), nil)
}

// ListDeviceTypes returns all device types.
func (r *Registry) ListDeviceTypes(ctx context.Context) ([]DeviceType, error) {
	var resp struct {
		DeviceTypes []DeviceType `json:"device_types"`
	}
	if err := r.client.Get(ctx, pathDeviceTypes, apiclient.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.DeviceTypes, nil
}

// GetDeviceType returns one device type.
func (r *Registry) GetDeviceType(ctx context.Context, id int64) (*DeviceType, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, itemPath(pathDeviceTypes, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[DeviceType](raw, "device_type")
}

// ListDeviceModels returns all device models.
func (r *Registry) ListDeviceModels(ctx context.Context) ([]DeviceModel, error) {
	var resp struct {
		DeviceModels []DeviceModel `json:"device_models"`
	}
	if err := r.client.Get(ctx, pathDeviceModels, apiclient.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.DeviceModels, nil
}

// GetDeviceModel returns one device model.
func (r *Registry) GetDeviceModel(ctx context.Context, id int64) (*DeviceModel, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, itemPath(pathDeviceModels, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[DeviceModel](raw, "device_model")
}

// CreateDeviceModel adds a device model (admin).
func (r *Registry) CreateDeviceModel(ctx context.Context, in DeviceModelInput) (*DeviceModel, error) {
	if err := in.validateCreate(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := r.client.Post(ctx, pathDeviceModels, in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[DeviceModel](raw, "device_model")
}

// UpdateDeviceModel changes a device model (admin).
func (r *Registry) UpdateDeviceModel(ctx context.Context, id int64, in DeviceModelInput) (*DeviceModel, error) {
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := r.client.Put(ctx, itemPath(pathDeviceModels, id), in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[DeviceModel](raw, "device_model")
}

// DeleteDeviceModel removes a device model (admin).
func (r *Registry) DeleteDeviceModel(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, itemPath(pathDeviceModels, id), nil)
}

func itemPath(base string, id int64) string {
	return fmt.Sprintf("%s/%d", base, id)
}
