package poller

import (
	"fmt"
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

// Point is one polled address window.
type Point struct {
	DeviceID string
	Conn     modbus.Connection
	Space    modbus.Space
	Address  uint16
	Length   uint16
}

func (p Point) String() string {
	return fmt.Sprintf("%s %s[%d+%d]", p.DeviceID, p.Space, p.Address, p.Length)
}

// Sample is one successful point read.
type Sample struct {
	DeviceID string          `json:"deviceId"`
	Reading  *modbus.Reading `json:"reading"`
	At       time.Time       `json:"at"`
}

// PointsFromConfig converts configured points, rejecting anything the
// Modbus facade could not address.
func PointsFromConfig(cfgs []config.PointConfig) ([]Point, error) {
	points := make([]Point, 0, len(cfgs))
	for i, c := range cfgs {
		space, err := modbus.ParseSpace(c.Space)
		if err != nil {
			return nil, fmt.Errorf("%w: points[%d]: %w", ErrInvalidPoint, i, err)
		}
		switch {
		case c.Port < 1 || c.Port > 0xFFFF:
			return nil, fmt.Errorf("%w: points[%d]: port %d out of range", ErrInvalidPoint, i, c.Port)
		case c.UnitID < 0 || c.UnitID > 0xFF:
			return nil, fmt.Errorf("%w: points[%d]: unit_id %d out of range", ErrInvalidPoint, i, c.UnitID)
		case c.Address < 0 || c.Length < 1 || c.Address+c.Length-1 > 0xFFFF:
			return nil, fmt.Errorf("%w: points[%d]: window %d+%d out of range", ErrInvalidPoint, i, c.Address, c.Length)
		}
		id := c.DeviceID
		if id == "" {
			id = fmt.Sprintf("%s:%d-%d", c.Host, c.Port, c.UnitID)
		}
		points = append(points, Point{
			DeviceID: id,
			Conn:     modbus.Connection{Host: c.Host, Port: uint16(c.Port), UnitID: uint8(c.UnitID)},
			Space:    space,
			Address:  uint16(c.Address),
			Length:   uint16(c.Length),
		})
	}
	return points, nil
}
