package util

import (
	"github.com/berfenger/cc301wb2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Line: config.LineConfig{
			DeviceName:         "CC-301&WB",
			Host:               "-.-.-.-",
			Port:               502,
			ScanIntervalMillis: 10000,
			LockTimeoutMillis:  5000,
			IOTimeoutMillis:    3000,
		},
		Meter: config.MeterConfig{
			Address: 0,
			CTRatio: 50,
			CRC: config.CRCConfig{
				Poly:      0x8005,
				Init:      0xFFFF,
				Reflected: true,
			},
		},
		Switch: config.SwitchConfig{
			SlaveId:   1,
			CoilCount: 8,
			Framing:   "tcp",
			Speed:     9600,
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "cc301wb",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Port: 8080,
	}
}
