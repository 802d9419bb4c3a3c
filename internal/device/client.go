package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

// Registry paths.
const (
	pathDevices = "/devices"
	pathTypes   = "/devices/types"
	pathModels  = "/devices/models"
)

// Client reads and writes the device registry through the request
// gateway. It holds no state of its own.
type Client struct {
	gw *apiclient.Client
}

// NewClient creates a device client.
func NewClient(gw *apiclient.Client) *Client {
	return &Client{gw: gw}
}

// ==================== Devices ====================

// List returns one page of devices.
func (c *Client) List(ctx context.Context, f Filter) (*apiclient.Page[Device], error) {
	q := apiclient.Values{}
	if f.TypeID > 0 {
		q.Set("type_id", f.TypeID)
	}
	q.Set("type_code", string(f.TypeCode)).
		Set("status", string(f.Status)).
		Set("limit", f.Limit).
		Set("offset", f.Offset).
		Set("orderBy", f.OrderBy).
		Set("order", f.Order)

	var page apiclient.Page[Device]
	if err := c.gw.Get(ctx, pathDevices, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one device.
func (c *Client) Get(ctx context.Context, id int64) (*Device, error) {
	var raw json.RawMessage
	if err := c.gw.Get(ctx, itemPath(pathDevices, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// Create registers a device. Name, type and config are required.
func (c *Client) Create(ctx context.Context, in Input) (*Device, error) {
	switch {
	case in.Name == "":
		return nil, apiclient.NewBadRequest("name is required")
	case in.TypeID == 0:
		return nil, apiclient.NewBadRequest("type_id is required")
	case in.Config == nil:
		return nil, apiclient.NewBadRequest("config is required")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.gw.Post(ctx, pathDevices, in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// Update changes a device.
func (c *Client) Update(ctx context.Context, id int64, in Input) (*Device, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.gw.Put(ctx, itemPath(pathDevices, id), in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Device](raw, "device")
}

// Delete removes a device.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.gw.Delete(ctx, itemPath(pathDevices, id), nil)
}

// ==================== Types ====================

// ListTypes returns every device type.
func (c *Client) ListTypes(ctx context.Context) ([]Type, error) {
	var resp struct {
		DeviceTypes []Type `json:"device_types"`
	}
	if err := c.gw.Get(ctx, pathTypes, apiclient.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.DeviceTypes, nil
}

// GetType returns one device type by ID.
func (c *Client) GetType(ctx context.Context, id int64) (*Type, error) {
	var raw json.RawMessage
	if err := c.gw.Get(ctx, itemPath(pathTypes, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Type](raw, "device_type")
}

// GetTypeByCode returns one device type by code.
func (c *Client) GetTypeByCode(ctx context.Context, code TypeCode) (*Type, error) {
	if !code.Valid() {
		return nil, apiclient.NewBadRequest("unknown device type code %q", code)
	}
	var raw json.RawMessage
	path := pathTypes + "/code/" + url.PathEscape(string(code))
	if err := c.gw.Get(ctx, path, apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Type](raw, "device_type")
}

// ==================== Models ====================

// ListModels returns the device models, optionally narrowed by type.
func (c *Client) ListModels(ctx context.Context, f ModelFilter) ([]Model, error) {
	q := apiclient.Values{}
	if f.TypeID > 0 {
		q.Set("type_id", f.TypeID)
	}
	q.Set("type_code", string(f.TypeCode))

	var resp struct {
		DeviceModels []Model `json:"device_models"`
	}
	if err := c.gw.Get(ctx, pathModels, q, &resp); err != nil {
		return nil, err
	}
	return resp.DeviceModels, nil
}

// GetModel returns one device model.
func (c *Client) GetModel(ctx context.Context, id int64) (*Model, error) {
	var raw json.RawMessage
	if err := c.gw.Get(ctx, itemPath(pathModels, id), apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Model](raw, "device_model")
}

// CreateModel adds a device model (admin).
func (c *Client) CreateModel(ctx context.Context, in ModelInput) (*Model, error) {
	switch {
	case in.Name == "":
		return nil, apiclient.NewBadRequest("name is required")
	case in.TypeID == 0:
		return nil, apiclient.NewBadRequest("type_id is required")
	}
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.gw.Post(ctx, pathModels, in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Model](raw, "device_model")
}

// UpdateModel changes a device model (admin).
func (c *Client) UpdateModel(ctx context.Context, id int64, in ModelInput) (*Model, error) {
	if err := apiclient.Validate(in); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.gw.Put(ctx, itemPath(pathModels, id), in, &raw); err != nil {
		return nil, err
	}
	return apiclient.Unwrap[Model](raw, "device_model")
}

// DeleteModel removes a device model (admin).
func (c *Client) DeleteModel(ctx context.Context, id int64) error {
	return c.gw.Delete(ctx, itemPath(pathModels, id), nil)
}

func validateInput(in Input) error {
	if err := apiclient.Validate(in); err != nil {
		return err
	}
	if in.Config != nil {
		return ValidateConfig(in.Config)
	}
	return nil
}

func itemPath(base string, id int64) string {
	return fmt.Sprintf("%s/%d", base, id)
}
