package util

import (
	"heatpump2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusRTUConfig{
			Driver:        config.DRIVER_SIMONVETTER,
			Port:          "/dev/ttyUSB0",
			BaudRate:      9600,
			DataBits:      8,
			Parity:        "N",
			StopBits:      1,
			UnitId:        1,
			TimeoutMillis: 1000,
			Simulate:      true,
		},
		Control: config.ControlConfig{
			TransactionGapMillis:  50,
			RefreshIntervalMillis: 10000,
			QueueCapacity:         16,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "heatpump2mqtt",
		},
		Port: 8080,
	}
}
