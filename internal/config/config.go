package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sigurn/crc16"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Line     LineConfig   `mapstructure:"line"`
	Meter    MeterConfig  `mapstructure:"meter"`
	Switch   SwitchConfig `mapstructure:"switch"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Port     uint         `mapstructure:"port"`
	HttpLog  bool         `mapstructure:"http_log"`
}

// LineConfig describes the gateway both devices share.
type LineConfig struct {
	DeviceName         string `mapstructure:"device_name"`
	Host               string
	Port               uint
	ScanIntervalMillis uint32 `mapstructure:"scan_interval_millis"`
	LockTimeoutMillis  uint32 `mapstructure:"lock_timeout_millis"`
	IOTimeoutMillis    uint32 `mapstructure:"io_timeout_millis"`
}

type MeterConfig struct {
	Address                  uint8     `mapstructure:"address"`
	CTRatio                  float64   `mapstructure:"ct_ratio"`
	MarkUnavailableOnFailure bool      `mapstructure:"mark_unavailable_on_failure"`
	CRC                      CRCConfig `mapstructure:"crc"`
}

type CRCConfig struct {
	Poly      uint16 `mapstructure:"poly"`
	Init      uint16 `mapstructure:"init"`
	Reflected bool   `mapstructure:"reflected"`
	XorOut    uint16 `mapstructure:"xor_out"`
}

type SwitchConfig struct {
	SlaveId                       uint8  `mapstructure:"slave_id"`
	CoilCount                     uint16 `mapstructure:"coil_count"`
	Framing                       string `mapstructure:"framing"`
	Speed                         uint   `mapstructure:"speed"`
	MarkUnavailableOnWriteFailure bool   `mapstructure:"mark_unavailable_on_write_failure"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c LineConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMillis) * time.Millisecond
}

func (c LineConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMillis) * time.Millisecond
}

func (c LineConfig) IOTimeout() time.Duration {
	return time.Duration(c.IOTimeoutMillis) * time.Millisecond
}

// Params converts the configured CRC flavour. Reflected applies to both input and output.
func (c CRCConfig) Params() crc16.Params {
	return crc16.Params{
		Poly:   c.Poly,
		Init:   c.Init,
		RefIn:  c.Reflected,
		RefOut: c.Reflected,
		XorOut: c.XorOut,
		Name:   "CC-301",
	}
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
