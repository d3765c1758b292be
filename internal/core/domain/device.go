package domain

import (
	"time"

	"github.com/berfenger/cc301wb2mqtt/pkg/cc301"
)

// Status is the availability of a field device as last observed.
type Status int8

const (
	StatusUnknown Status = iota
	StatusAvailable
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CoilState is the last known state of one relay coil.
type CoilState int8

const (
	CoilUnknown CoilState = iota
	CoilOff
	CoilOn
)

func CoilStateOf(on bool) CoilState {
	if on {
		return CoilOn
	}
	return CoilOff
}

func (c CoilState) Known() bool {
	return c != CoilUnknown
}

func (c CoilState) IsOn() bool {
	return c == CoilOn
}

func (c CoilState) String() string {
	switch c {
	case CoilOn:
		return "on"
	case CoilOff:
		return "off"
	default:
		return "unknown"
	}
}

func (c CoilState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MeterReading is the cached state of the power meter.
// UpdatedAt is zero until the first successful read.
type MeterReading struct {
	cc301.Measurements
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r MeterReading) HasValues() bool {
	return !r.UpdatedAt.IsZero()
}

// CoilBank is the cached state of the relay module.
type CoilBank struct {
	Coils  []CoilState `json:"coils"`
	Status Status      `json:"status"`
}

type DeviceInfo struct {
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
}
