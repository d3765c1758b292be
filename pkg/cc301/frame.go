package cc301

import (
	"encoding/binary"
	"math"

	"github.com/sigurn/crc16"
)

const (
	RequestPayloadLength  = 6
	RequestLength         = RequestPayloadLength + 2
	ResponsePayloadLength = 76
	ResponseLength        = ResponsePayloadLength + 2

	FunctionRead     byte = 3
	ParamInstantVals byte = 46

	statusByteIndex = 3
	valueCount      = ResponsePayloadLength / 4
	roundDecimals   = 2
)

// payload value positions
const (
	idxSummaryPower = 1
	idxPhase1Power  = 2
	idxPhase1Volts  = 9
)

// Codec builds request frames and validates/decodes response frames.
type Codec struct {
	checksum *Checksum
	ctRatio  float64
}

func NewCodec(params crc16.Params, ctRatio float64) *Codec {
	if ctRatio <= 0 {
		ctRatio = DefaultCurrentTransformerRatio
	}
	return &Codec{
		checksum: NewChecksum(params),
		ctRatio:  ctRatio,
	}
}

// InstantValuesRequest returns the 8 byte frame asking the meter at address for
// its instantaneous values.
func (c *Codec) InstantValuesRequest(address uint8) []byte {
	return c.checksum.Append([]byte{address, FunctionRead, ParamInstantVals, 0, 0, 0})
}

// Validate checks the success byte first, then the CRC.
func (c *Codec) Validate(frame []byte) error {
	if len(frame) != ResponseLength {
		return ErrFrameLength
	}
	if frame[statusByteIndex] != 0 {
		return &StatusError{Code: frame[statusByteIndex]}
	}
	received, computed, ok := c.checksum.Verify(frame)
	if !ok {
		return &ChecksumError{Received: received, Computed: computed}
	}
	return nil
}

// Decode validates a response frame and extracts the measurements.
func (c *Codec) Decode(frame []byte) (*Measurements, error) {
	if err := c.Validate(frame); err != nil {
		return nil, err
	}
	values := unpackFloats(frame[:ResponsePayloadLength])

	m := &Measurements{
		SummaryPower: round(c.ctRatio * values[idxSummaryPower]),
	}
	for i := 0; i < 3; i++ {
		m.PhasePower[i] = round(c.ctRatio * values[idxPhase1Power+i])
		m.PhaseVoltage[i] = round(values[idxPhase1Volts+i])
	}
	return m, nil
}

func unpackFloats(payload []byte) []float64 {
	values := make([]float64, 0, valueCount)
	for i := 0; i+4 <= len(payload); i += 4 {
		bits := binary.LittleEndian.Uint32(payload[i : i+4])
		values = append(values, float64(math.Float32frombits(bits)))
	}
	return values
}

func round(v float64) float64 {
	p := math.Pow(10, roundDecimals)
	return math.RoundToEven(v*p) / p
}
