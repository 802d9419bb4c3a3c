package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicPrefix is the root of every console topic.
const TopicPrefix = "ba-console"

// Topics builds console topics. Using it keeps naming consistent:
//
//	mqtt.Topics{}.ModbusSample("plc-1", "coils", 4)
//	// "ba-console/modbus/plc-1/coils/4"
type Topics struct{}

// Status is the retained console status topic (also the LWT topic).
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Session carries session change events.
func (Topics) Session() string {
	return TopicPrefix + "/session"
}

// ModbusSample is the topic for one polled point.
func (Topics) ModbusSample(deviceID, space string, address uint16) string {
	return fmt.Sprintf("%s/modbus/%s/%s/%d", TopicPrefix, segment(deviceID), space, address)
}

// CoilCommand is the topic automation publishes to in order to write a coil.
func (Topics) CoilCommand(deviceID string, address uint16) string {
	return fmt.Sprintf("%s/command/modbus/%s/coils/%d", TopicPrefix, segment(deviceID), address)
}

// AllModbusSamples matches every sample topic.
func (Topics) AllModbusSamples() string {
	return TopicPrefix + "/modbus/#"
}

// AllCoilCommands matches every coil command topic.
func (Topics) AllCoilCommands() string {
	return TopicPrefix + "/command/modbus/+/coils/+"
}

// ParseCoilCommand extracts the device ID and coil address from a topic
// matched by AllCoilCommands.
func ParseCoilCommand(topic string) (deviceID string, address uint16, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 6 || parts[0] != TopicPrefix || parts[1] != "command" || parts[2] != "modbus" || parts[4] != "coils" || parts[3] == "" {
		return "", 0, fmt.Errorf("%w: %q is not a coil command", ErrInvalidTopic, topic)
	}
	n, err := strconv.ParseUint(parts[5], 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad coil address in %q", ErrInvalidTopic, topic)
	}
	return parts[3], uint16(n), nil
}

// segment makes an ID safe for use as one topic level.
func segment(id string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	return r.Replace(id)
}
