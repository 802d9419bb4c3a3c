// Package device is the client for the backend's general device registry.
//
// Devices of every kind (controllers, cameras, sensors, tablets, network
// gear) live under /devices. Each device carries a type-specific config
// object whose shape is chosen by the device type code:
//
//	controller  host, port, unitId         (a Modbus TCP endpoint)
//	camera      rtsp_url, ip_address, port, username, password
//	sensor      protocol, host, port, unitId, connection_string, api_endpoint
//	tablet      mac_address, ip_address, location
//	network     ip_address, mac_address, device_type, port
//
// Stored configs predate this shape and use several spellings for the
// same field. DecodeConfig normalises them once, at load time, so the
// rest of the console only ever sees the typed variants.
//
// # Usage
//
//	devices := device.NewClient(gw)
//	d, err := devices.Get(ctx, 12)
//	if err != nil {
//	    return err
//	}
//	conn, err := d.ModbusConnection()
package device
