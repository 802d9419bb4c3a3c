package modbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

// Space is one of the four Modbus memory spaces, named by its facade path.
type Space string

// Memory spaces.
const (
	SpaceDiscreteInputs   Space = "discrete-inputs"
	SpaceCoils            Space = "coils"
	SpaceHoldingRegisters Space = "holding-registers"
	SpaceInputRegisters   Space = "input-registers"
)

// Spaces lists every memory space in facade order.
var Spaces = []Space{SpaceDiscreteInputs, SpaceCoils, SpaceHoldingRegisters, SpaceInputRegisters}

// ParseSpace validates a space name.
func ParseSpace(s string) (Space, error) {
	for _, sp := range Spaces {
		if string(sp) == s {
			return sp, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSpace, s)
}

// Boolean reports whether the space holds single bits.
func (s Space) Boolean() bool {
	return s == SpaceDiscreteInputs || s == SpaceCoils
}

// Writable reports whether the facade accepts writes to the space.
func (s Space) Writable() bool {
	return s == SpaceCoils
}

// ReadMethod returns the facade read operation for the space.
func (s Space) ReadMethod() Method {
	switch s {
	case SpaceDiscreteInputs:
		return MethodGetDiscreteInputs
	case SpaceCoils:
		return MethodGetCoils
	case SpaceHoldingRegisters:
		return MethodGetHoldingRegisters
	case SpaceInputRegisters:
		return MethodGetInputRegisters
	}
	return ""
}

// Method names a facade operation. The names double as the point methods
// stored in category configurations.
type Method string

// Facade operations.
const (
	MethodGetDiscreteInputs   Method = "getDiscreteInputs"
	MethodGetCoils            Method = "getCoils"
	MethodGetHoldingRegisters Method = "getHoldingRegisters"
	MethodGetInputRegisters   Method = "getInputRegisters"
	MethodWriteCoil           Method = "writeCoil"
	MethodWriteCoils          Method = "writeCoils"
	MethodGetHealth           Method = "getHealth"
)

// pointMethods are the methods allowed in a category point.
var pointMethods = map[Method]Space{
	MethodGetDiscreteInputs:   SpaceDiscreteInputs,
	MethodGetCoils:            SpaceCoils,
	MethodGetHoldingRegisters: SpaceHoldingRegisters,
	MethodGetInputRegisters:   SpaceInputRegisters,
	MethodWriteCoil:           SpaceCoils,
	MethodWriteCoils:          SpaceCoils,
}

// Space returns the memory space a point method touches.
func (m Method) Space() (Space, bool) {
	sp, ok := pointMethods[m]
	return sp, ok
}

// IsWrite reports whether m changes device state.
func (m Method) IsWrite() bool {
	return m == MethodWriteCoil || m == MethodWriteCoils
}

// Connection identifies one Modbus TCP endpoint.
type Connection struct {
	Host   string `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port   uint16 `json:"port" validate:"required"`
	UnitID uint8  `json:"unitId"`
}

// Query renders the connection as facade query parameters.
func (c Connection) Query() apiclient.Values {
	q := apiclient.Values{}
	q.Set("host", c.Host).Set("port", c.Port).Set("unitId", c.UnitID)
	return q
}

func (c Connection) String() string {
	return fmt.Sprintf("%s:%d/%d", c.Host, c.Port, c.UnitID)
}

// Datum is the element type of a read: bits or 16-bit words.
type Datum interface {
	bool | uint16
}

// ReadResult is the facade's answer to a read.
type ReadResult[T Datum] struct {
	Address uint16      `json:"address"`
	Length  uint16      `json:"length"`
	Data    []T         `json:"data"`
	Device  *Connection `json:"device,omitempty"`
}

// Reading is a space-independent read result, used where the space is
// only known at runtime (proxying, polling).
type Reading struct {
	Space   Space
	Address uint16
	Length  uint16
	Bits    []bool
	Words   []uint16
	Device  *Connection
}

// Values returns the data as numbers; bits become 0 or 1.
func (r Reading) Values() []float64 {
	if r.Space.Boolean() {
		out := make([]float64, len(r.Bits))
		for i, b := range r.Bits {
			if b {
				out[i] = 1
			}
		}
		return out
	}
	out := make([]float64, len(r.Words))
	for i, w := range r.Words {
		out[i] = float64(w)
	}
	return out
}

// MarshalJSON renders the facade shape with the space added.
func (r Reading) MarshalJSON() ([]byte, error) {
	var data any = r.Words
	if r.Space.Boolean() {
		data = r.Bits
	}
	return json.Marshal(struct {
		Space   Space       `json:"space"`
		Address uint16      `json:"address"`
		Length  uint16      `json:"length"`
		Data    any         `json:"data"`
		Device  *Connection `json:"device,omitempty"`
	}{r.Space, r.Address, r.Length, data, r.Device})
}

// WriteResult is the facade's answer to a coil write.
type WriteResult struct {
	Address uint16      `json:"address"`
	Value   *bool       `json:"value,omitempty"`
	Values  []bool      `json:"values,omitempty"`
	Success bool        `json:"success"`
	Device  *Connection `json:"device,omitempty"`
}

// Health is the backend's live session state for one connection.
type Health struct {
	IsOpen          bool       `json:"isOpen"`
	Host            string     `json:"host"`
	Port            uint16     `json:"port"`
	UnitID          uint8      `json:"unitId"`
	LastConnectedAt *time.Time `json:"lastConnectedAt"`
}

// coilWrite is the PUT /modbus/coils body.
type coilWrite struct {
	Address uint16 `json:"address"`
	Value   *bool  `json:"value,omitempty"`
	Values  []bool `json:"values,omitempty"`
}
