package cc301

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticValues() []float32 {
	values := make([]float32, valueCount)
	for i := 1; i < len(values); i++ {
		values[i] = float32(i) * 1.37
	}
	values[1] = 48.21337
	values[2] = 16.0123
	values[3] = 15.9871
	values[4] = 16.2143
	values[9] = 229.8164
	values[10] = 231.0249
	values[11] = 230.3951
	return values
}

// byte 3 is the success byte and also the top byte of value 0, so value 0 stays 0
func syntheticResponse(codec *Codec, values []float32) []byte {
	payload := make([]byte, ResponsePayloadLength)
	for i, v := range values {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	return codec.checksum.Append(payload)
}

func expected(v float32, ratio float64) float64 {
	return math.RoundToEven(ratio*float64(v)*100) / 100
}

func TestInstantValuesRequest(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	req := codec.InstantValuesRequest(7)

	assert.Len(req, RequestLength)
	assert.Equal([]byte{7, 3, 46, 0, 0, 0}, req[:RequestPayloadLength])
	sum := referenceCRC(req[:RequestPayloadLength])
	assert.Equal(byte(sum), req[6], "crc low")
	assert.Equal(byte(sum>>8), req[7], "crc high")
}

func TestDecodeSyntheticResponse(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	values := syntheticValues()
	frame := syntheticResponse(codec, values)
	require.Len(t, frame, ResponseLength)

	m, err := codec.Decode(frame)
	require.NoError(t, err)

	assert.Equal(expected(values[1], 50), m.SummaryPower)
	assert.Equal(expected(values[2], 50), m.PhasePower[0])
	assert.Equal(expected(values[3], 50), m.PhasePower[1])
	assert.Equal(expected(values[4], 50), m.PhasePower[2])
	assert.Equal(expected(values[9], 1), m.PhaseVoltage[0])
	assert.Equal(expected(values[10], 1), m.PhaseVoltage[1])
	assert.Equal(expected(values[11], 1), m.PhaseVoltage[2])
	assert.InDelta(2410.67, m.SummaryPower, 0.01)
	assert.InDelta(229.82, m.PhaseVoltage[0], 0.001)
}

func TestDecodeCustomRatio(t *testing.T) {

	codec := NewCodec(DefaultCRCParams, 100)
	values := syntheticValues()

	m, err := codec.Decode(syntheticResponse(codec, values))
	require.NoError(t, err)
	assert.Equal(t, expected(values[2], 100), m.PhasePower[0])
	assert.Equal(t, expected(values[9], 1), m.PhaseVoltage[0], "voltages are not scaled")
}

func TestDecodeRoundsHalfToEven(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	values := syntheticValues()
	values[1] = 185.0625 // 9253.125 after scaling
	values[9] = 0.125
	values[10] = 0.375

	m, err := codec.Decode(syntheticResponse(codec, values))
	require.NoError(t, err)
	assert.Equal(9253.12, m.SummaryPower)
	assert.Equal(0.12, m.PhaseVoltage[0])
	assert.Equal(0.38, m.PhaseVoltage[1])
}

func TestValidateStatusBeforeCRC(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	frame := syntheticResponse(codec, syntheticValues())

	// non-zero status byte with a broken crc reports the status
	frame[3] = 0x05
	err := codec.Validate(frame)
	var statusErr *StatusError
	assert.True(errors.As(err, &statusErr))
	assert.Equal(byte(0x05), statusErr.Code)

	// non-zero status byte with a correct crc still fails
	frame = codec.checksum.Append(frame[:ResponsePayloadLength])
	_, err = codec.Decode(frame)
	assert.True(errors.As(err, &statusErr))
}

func TestValidateBadCRC(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	frame := syntheticResponse(codec, syntheticValues())
	frame[ResponseLength-2] ^= 0x01

	m, err := codec.Decode(frame)
	assert.Nil(m)
	var crcErr *ChecksumError
	assert.True(errors.As(err, &crcErr))
	assert.NotEqual(crcErr.Received, crcErr.Computed)
}

func TestValidateLength(t *testing.T) {

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	frame := syntheticResponse(codec, syntheticValues())

	assert.ErrorIs(t, codec.Validate(frame[:40]), ErrFrameLength)
	assert.ErrorIs(t, codec.Validate(append(frame, 0)), ErrFrameLength)
}
