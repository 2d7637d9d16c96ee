package util

import (
	"github.com/nemotek/counters2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusConfig{
			Driver: "simonvetter",
		},
		Poll: config.PollConfig{
			IntervalMillis:       1000,
			CollectTimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "counters",
			HADiscoveryTopic: "homeassistant",
		},
		Meters: []config.MeterConfig{
			{
				Model:       "contrel_ud3h",
				CounterId:   115,
				UnitId:      81,
				CounterName: "Geral #115",
				CompanyId:   "ACME",
				TCP: &config.MeterTCPConfig{
					Host: "-.-.-.-",
					Port: 502,
				},
			},
		},
		Port: 8080,
	}
}
