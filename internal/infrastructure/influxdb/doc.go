// Package influxdb records polled Modbus samples in InfluxDB v2.
//
// Every polled address becomes one point of the modbus_point measurement:
//
//	modbus_point,device_id=plc-1,space=coils,address=4 value=1 <ts>
//
// Writes are batched and non-blocking (batch_size, flush_interval from
// config). Write failures surface asynchronously through SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteModbusSample("plc-1", "coils", 0, []float64{1, 0}, time.Now())
package influxdb
