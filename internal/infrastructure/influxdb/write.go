package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementModbus is the measurement polled samples are written to.
const MeasurementModbus = "modbus_point"

// WriteModbusSample writes one point per address of a polled window,
// starting at address. The write is batched and non-blocking.
func (c *Client) WriteModbusSample(deviceID, space string, address uint16, values []float64, at time.Time) {
	if !c.IsConnected() {
		return
	}
	for _, p := range modbusPoints(deviceID, space, address, values, at) {
		c.writer.WritePoint(p)
		c.points.Add(1)
	}
}

func modbusPoints(deviceID, space string, address uint16, values []float64, at time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(values))
	for i, v := range values {
		addr := int(address) + i
		if addr > 0xFFFF {
			break
		}
		points = append(points, write.NewPoint(
			MeasurementModbus,
			map[string]string{
				"device_id": deviceID,
				"space":     space,
				"address":   strconv.Itoa(addr),
			},
			map[string]any{"value": v},
			at,
		))
	}
	return points
}
