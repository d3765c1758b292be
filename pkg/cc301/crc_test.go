package cc301

import (
	"math/rand/v2"
	"testing"

	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
)

// bitwise Modbus CRC16, one bit at a time
func referenceCRC(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestChecksumKnownVectors(t *testing.T) {

	assert := assert.New(t)

	c := NewChecksum(DefaultCRCParams)

	assert.Equal(uint16(0x4B37), c.Sum([]byte("123456789")), "check value")
	assert.Equal(uint16(0x0A84), c.Sum([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}), "modbus request")
	assert.Equal([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A},
		c.Append([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}), "low byte first")
}

func TestChecksumMatchesReference(t *testing.T) {

	assert := assert.New(t)

	c := NewChecksum(DefaultCRCParams)
	rng := rand.New(rand.NewPCG(1, 2))

	for n := 0; n < 200; n++ {
		data := make([]byte, rng.IntN(ResponseLength)+1)
		for i := range data {
			data[i] = byte(rng.UintN(256))
		}
		assert.Equal(referenceCRC(data), c.Sum(data), "payload %x", data)
	}
}

func TestChecksumVerify(t *testing.T) {

	assert := assert.New(t)

	c := NewChecksum(DefaultCRCParams)
	frame := c.Append([]byte{7, 3, 46, 0, 0, 0})

	_, _, ok := c.Verify(frame)
	assert.True(ok)

	frame[len(frame)-1] ^= 0xFF
	received, computed, ok := c.Verify(frame)
	assert.False(ok)
	assert.NotEqual(received, computed)

	_, _, ok = c.Verify([]byte{1})
	assert.False(ok, "too short")
}

func TestChecksumCustomParams(t *testing.T) {

	assert := assert.New(t)

	c := NewChecksum(crc16.CRC16_ARC)
	assert.Equal(crc16.CRC16_ARC.Check, c.Sum([]byte("123456789")))
	assert.NotEqual(NewChecksum(DefaultCRCParams).Sum([]byte("123456789")), c.Sum([]byte("123456789")))
}
