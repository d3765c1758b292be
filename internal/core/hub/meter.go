package hub

import (
	"context"
	"sync"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/pkg/cc301"
)

// MeterDevice caches the last good CC-301 reading.
type MeterDevice struct {
	deviceBase
	reader cc301.Reader
	// flip to unavailable when a read fails instead of keeping the last status
	markUnavailableOnFailure bool

	mu      sync.RWMutex
	reading domain.MeterReading
}

func NewMeterDevice(id, name string, reader cc301.Reader, markUnavailableOnFailure bool) *MeterDevice {
	return &MeterDevice{
		deviceBase: deviceBase{
			id:   id,
			name: name,
			info: domain.DeviceInfo{
				Model:        METER_MODEL,
				Manufacturer: METER_MANUFACTURER,
			},
		},
		reader:                   reader,
		markUnavailableOnFailure: markUnavailableOnFailure,
	}
}

func (m *MeterDevice) Update(ctx context.Context) (domain.Status, error) {
	values, err := m.reader.ReadInstantValues(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if m.markUnavailableOnFailure {
			m.reading.Status = domain.StatusUnavailable
		}
		return m.reading.Status, err
	}
	m.reading = domain.MeterReading{
		Measurements: *values,
		Status:       domain.StatusAvailable,
		UpdatedAt:    time.Now(),
	}
	return m.reading.Status, nil
}

func (m *MeterDevice) Reading() domain.MeterReading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reading
}

func (m *MeterDevice) Status() domain.Status {
	return m.Reading().Status
}
