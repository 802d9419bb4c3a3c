package modbus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
)

const (
	// DefaultTimeout bounds every facade call unless Options overrides it.
	DefaultTimeout = 5 * time.Second

	basePath = "/modbus"

	// maxAddress is the highest Modbus data address.
	maxAddress = 0xFFFF
)

// Options configures a Gateway.
type Options struct {
	// Timeout per facade call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Anonymous sends calls without a bearer token and never invalidates
	// the session. For deployments where the facade sits outside the
	// backend's auth boundary.
	Anonymous bool

	Logger *logging.Logger
}

// Gateway is the typed client for the Modbus facade.
type Gateway struct {
	client    *apiclient.Client
	anonymous bool
	logger    *logging.Logger
}

// NewGateway derives a facade client from the shared request gateway.
func NewGateway(client *apiclient.Client, opts Options) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := client.WithTimeout(timeout)
	if opts.Anonymous {
		c = c.Anonymous()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gateway{
		client:    c,
		anonymous: opts.Anonymous,
		logger:    logger.With("component", "modbus"),
	}
}

// Anonymous reports whether the gateway runs outside the auth boundary.
func (g *Gateway) Anonymous() bool {
	return g.anonymous
}

// ReadDiscreteInputs reads length discrete inputs starting at address.
func (g *Gateway) ReadDiscreteInputs(ctx context.Context, address, length uint16, conn Connection) (*ReadResult[bool], error) {
	return read[bool](ctx, g, SpaceDiscreteInputs, address, length, conn)
}

// ReadCoils reads length coils starting at address.
func (g *Gateway) ReadCoils(ctx context.Context, address, length uint16, conn Connection) (*ReadResult[bool], error) {
	return read[bool](ctx, g, SpaceCoils, address, length, conn)
}

// ReadHoldingRegisters reads length holding registers starting at address.
func (g *Gateway) ReadHoldingRegisters(ctx context.Context, address, length uint16, conn Connection) (*ReadResult[uint16], error) {
	return read[uint16](ctx, g, SpaceHoldingRegisters, address, length, conn)
}

// ReadInputRegisters reads length input registers starting at address.
func (g *Gateway) ReadInputRegisters(ctx context.Context, address, length uint16, conn Connection) (*ReadResult[uint16], error) {
	return read[uint16](ctx, g, SpaceInputRegisters, address, length, conn)
}

// Read dispatches on space at runtime.
func (g *Gateway) Read(ctx context.Context, space Space, address, length uint16, conn Connection) (*Reading, error) {
	r := &Reading{Space: space}
	switch space {
	case SpaceDiscreteInputs, SpaceCoils:
		res, err := read[bool](ctx, g, space, address, length, conn)
		if err != nil {
			return nil, err
		}
		r.Address, r.Length, r.Bits, r.Device = res.Address, res.Length, res.Data, res.Device
	case SpaceHoldingRegisters, SpaceInputRegisters:
		res, err := read[uint16](ctx, g, space, address, length, conn)
		if err != nil {
			return nil, err
		}
		r.Address, r.Length, r.Words, r.Device = res.Address, res.Length, res.Data, res.Device
	default:
		cause := fmt.Errorf("%w: %q", ErrUnknownSpace, space)
		return nil, opError("read", &apiclient.Error{Kind: apiclient.KindBadRequest, Message: cause.Error(), Err: cause})
	}
	return r, nil
}

func read[T Datum](ctx context.Context, g *Gateway, space Space, address, length uint16, conn Connection) (*ReadResult[T], error) {
	op := space.ReadMethod()
	if err := checkWindow(address, length); err != nil {
		return nil, opError(op, err)
	}
	if err := apiclient.Validate(conn); err != nil {
		return nil, opError(op, err)
	}

	q := apiclient.Values{}
	q.Set("address", address).Set("length", length)
	q.Merge(conn.Query())

	var res ReadResult[T]
	if err := g.client.Get(ctx, basePath+"/"+string(space), q, &res); err != nil {
		return nil, opError(op, err)
	}
	if len(res.Data) != int(length) {
		g.logger.Warn("facade returned unexpected data length",
			"space", space, "address", address, "want", length, "got", len(res.Data), "device", conn.String())
	}
	return &res, nil
}

// WriteCoil sets one coil.
func (g *Gateway) WriteCoil(ctx context.Context, address uint16, value bool, conn Connection) (*WriteResult, error) {
	return g.writeCoils(ctx, MethodWriteCoil, coilWrite{Address: address, Value: &value}, conn)
}

// WriteCoils sets len(values) consecutive coils starting at address. The
// write replaces the window; it is not additive.
func (g *Gateway) WriteCoils(ctx context.Context, address uint16, values []bool, conn Connection) (*WriteResult, error) {
	if len(values) == 0 {
		return nil, opError(MethodWriteCoils, apiclient.NewBadRequest("values must not be empty"))
	}
	if int(address)+len(values)-1 > maxAddress {
		return nil, opError(MethodWriteCoils,
			apiclient.NewBadRequest("address window %d+%d exceeds %d", address, len(values), maxAddress))
	}
	return g.writeCoils(ctx, MethodWriteCoils, coilWrite{Address: address, Values: values}, conn)
}

func (g *Gateway) writeCoils(ctx context.Context, op Method, body coilWrite, conn Connection) (*WriteResult, error) {
	if err := apiclient.Validate(conn); err != nil {
		return nil, opError(op, err)
	}

	var res WriteResult
	err := g.client.Call(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   basePath + "/" + string(SpaceCoils),
		Query:  conn.Query(),
		Body:   body,
	}, &res)
	if err != nil {
		return nil, opError(op, err)
	}
	if !res.Success {
		return nil, opError(op, &apiclient.Error{
			Kind:    apiclient.KindServerFault,
			Message: "write not confirmed by device",
			Method:  http.MethodPut,
			Path:    basePath + "/" + string(SpaceCoils),
			Err:     ErrWriteNotConfirmed,
		})
	}

	g.logger.Info("coils written", "device", conn.String(), "address", body.Address, "method", op)
	return &res, nil
}

// Health reports the backend's live TCP/Modbus session for conn.
func (g *Gateway) Health(ctx context.Context, conn Connection) (*Health, error) {
	if err := apiclient.Validate(conn); err != nil {
		return nil, opError(MethodGetHealth, err)
	}
	var h Health
	if err := g.client.Get(ctx, basePath+"/health", conn.Query(), &h); err != nil {
		return nil, opError(MethodGetHealth, err)
	}
	return &h, nil
}

// checkWindow rejects empty windows and windows past the last address.
func checkWindow(address, length uint16) error {
	if length < 1 {
		return apiclient.NewBadRequest("length must be at least 1")
	}
	if int(address)+int(length)-1 > maxAddress {
		return apiclient.NewBadRequest("address window %d+%d exceeds %d", address, length, maxAddress)
	}
	return nil
}

// opError prefixes err with the facade operation, keeping its kind.
func opError[M ~string](op M, err error) error {
	return fmt.Errorf("modbus %s: %w", op, err)
}
