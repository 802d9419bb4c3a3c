// Package modbus reads and writes field-device memory through the
// backend's Modbus REST facade.
//
// The backend owns the TCP/Modbus sessions; this package only composes
// facade calls. Each call names one of four memory spaces, an address
// window, and the Connection (host, port, unit ID) of the target device.
// Connections travel as query parameters, never in the path:
//
//	GET /modbus/coils?address=10&length=3&host=10.0.0.5&port=502&unitId=1
//	PUT /modbus/coils?host=10.0.0.5&port=502&unitId=1   {"address":5,"values":[true,false]}
//
// Failures keep the request gateway's classification. They are wrapped
// with the operation name ("modbus getCoils: ...") and still match
// apiclient sentinels through errors.Is.
//
// The package also manages the backend's Modbus device registry and
// normalises legacy per-category point configurations.
package modbus
