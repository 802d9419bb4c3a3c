package poller

import (
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/influxdb"
	"github.com/yenshow/ba-frontend/internal/infrastructure/mqtt"
)

// Sink receives every successful sample. Accept is called concurrently
// from the cycle's read goroutines and must not block for long.
type Sink interface {
	Accept(s Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(s Sample) error

// Accept implements Sink.
func (f SinkFunc) Accept(s Sample) error {
	return f(s)
}

// mqttPayload is published per address.
type mqttPayload struct {
	DeviceID string  `json:"deviceId"`
	Space    string  `json:"space"`
	Address  int     `json:"address"`
	Value    float64 `json:"value"`
	At       string  `json:"at"`
}

// MQTTSink publishes one retained message per polled address.
func MQTTSink(client *mqtt.Client) Sink {
	return SinkFunc(func(s Sample) error {
		r := s.Reading
		for i, v := range r.Values() {
			addr := int(r.Address) + i
			topic := mqtt.Topics{}.ModbusSample(s.DeviceID, string(r.Space), uint16(addr))
			err := client.PublishJSON(topic, mqttPayload{
				DeviceID: s.DeviceID,
				Space:    string(r.Space),
				Address:  addr,
				Value:    v,
				At:       s.At.UTC().Format(time.RFC3339Nano),
			}, true)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// InfluxSink writes the sample as modbus_point measurements.
func InfluxSink(client *influxdb.Client) Sink {
	return SinkFunc(func(s Sample) error {
		r := s.Reading
		client.WriteModbusSample(s.DeviceID, string(r.Space), r.Address, r.Values(), s.At)
		return nil
	})
}
