package cc301

import "github.com/sigurn/crc16"

// DefaultCRCParams is the CRC16 flavour the CC-301 uses on the wire:
// the Modbus variant (reflected 0x8005, init 0xFFFF, no final xor).
var DefaultCRCParams = crc16.CRC16_MODBUS

// Checksum computes and checks the two trailing CRC bytes of a frame.
// The checksum goes on the wire low byte first.
type Checksum struct {
	table *crc16.Table
}

func NewChecksum(params crc16.Params) *Checksum {
	return &Checksum{
		table: crc16.MakeTable(params),
	}
}

func (c *Checksum) Sum(data []byte) uint16 {
	return crc16.Checksum(data, c.table)
}

// Append returns payload followed by its checksum.
func (c *Checksum) Append(payload []byte) []byte {
	sum := c.Sum(payload)
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, payload...)
	return append(frame, byte(sum), byte(sum>>8))
}

// Verify checks the last two bytes of frame against the checksum of the rest.
func (c *Checksum) Verify(frame []byte) (received, computed uint16, ok bool) {
	if len(frame) < 2 {
		return 0, 0, false
	}
	n := len(frame) - 2
	received = uint16(frame[n]) | uint16(frame[n+1])<<8
	computed = c.Sum(frame[:n])
	return received, computed, received == computed
}
