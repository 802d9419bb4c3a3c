// Package mqtt publishes console data onto an MQTT broker.
//
// The console uses the broker as an outbound bus: polled Modbus samples
// and session events are published for building dashboards and other
// automation. It also listens for coil commands so automation can drive
// outputs through the same authenticated gateway the UI uses.
//
// Topic tree (prefix "ba-console"):
//
//	ba-console/status                                   retained online/offline, LWT
//	ba-console/session                                  session changes
//	ba-console/modbus/<device>/<space>/<address>        point samples
//	ba-console/command/modbus/<device>/coils/<address>  coil write commands
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ModbusSample("plc-1", "coils", 4)
//	err = client.PublishJSON(topic, sample, false)
package mqtt
