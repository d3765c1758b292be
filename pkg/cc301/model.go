package cc301

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultCurrentTransformerRatio = 50
)

// Measurements are the instantaneous values of one CC-301 read-out.
// Powers are in W after the current transformer ratio is applied, voltages in V.
type Measurements struct {
	SummaryPower float64    `json:"summary_power"`
	PhasePower   [3]float64 `json:"phase_power"`
	PhaseVoltage [3]float64 `json:"phase_voltage"`
}

// Reader performs one instantaneous values exchange with the meter.
// Implementations do no locking: callers own the line for the whole call.
type Reader interface {
	ReadInstantValues(ctx context.Context) (*Measurements, error)
}

// Transport sends one request frame and returns exactly one response frame.
type Transport interface {
	Exchange(ctx context.Context, request []byte, responseLength int) ([]byte, error)
}

var ErrFrameLength = errors.New("cc301: unexpected response length")

// StatusError is returned when the success byte of a response is not zero.
type StatusError struct {
	Code byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cc301: meter reported status %d", e.Code)
}

// ChecksumError is returned when the trailing CRC of a response does not match.
type ChecksumError struct {
	Received uint16
	Computed uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("cc301: crc mismatch, received %04x, computed %04x", e.Received, e.Computed)
}
