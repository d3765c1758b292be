package config

import (
	"errors"

	"github.com/berfenger/cc301wb2mqtt/pkg/wbmr"
)

// Validate normalises the MQTT topics and checks bounds.
func Validate(cfg *Config) error {

	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Line.Host == "" {
		return errors.New("config param line.host is required")
	}
	if cfg.Line.Port == 0 || cfg.Line.Port > 65535 {
		return errors.New("config param line.port should be in [1, 65535]")
	}
	if cfg.Line.ScanIntervalMillis < 1000 {
		return errors.New("config param line.scan_interval_millis should be >= 1000")
	}
	if cfg.Line.LockTimeoutMillis == 0 {
		return errors.New("config param line.lock_timeout_millis should be > 0")
	}
	if cfg.Line.IOTimeoutMillis == 0 {
		return errors.New("config param line.io_timeout_millis should be > 0")
	}
	if cfg.Meter.CTRatio <= 0 {
		return errors.New("config param meter.ct_ratio should be > 0")
	}
	if cfg.Switch.CoilCount == 0 || cfg.Switch.CoilCount > wbmr.MaxCoilCount {
		return errors.New("config param switch.coil_count should be in [1, 2000]")
	}
	if cfg.Switch.Framing != wbmr.FramingTCP && cfg.Switch.Framing != wbmr.FramingRTUOverTCP {
		return errors.New("config param switch.framing should be tcp or rtuovertcp")
	}

	return nil
}
