package hub

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/pkg/wbmr"
)

// SwitchDevice caches the state of a WB-MR relay bank.
type SwitchDevice struct {
	deviceBase
	client wbmr.CoilClient
	count  int
	// flip to unavailable when a coil write fails
	markUnavailableOnWriteFailure bool

	mu     sync.RWMutex
	coils  []domain.CoilState
	status domain.Status
}

func NewSwitchDevice(id, name string, client wbmr.CoilClient, count int, markUnavailableOnWriteFailure bool) *SwitchDevice {
	return &SwitchDevice{
		deviceBase: deviceBase{
			id:   id,
			name: name,
			info: domain.DeviceInfo{
				Model:        SWITCH_MODEL,
				Manufacturer: SWITCH_MANUFACTURER,
			},
		},
		client:                        client,
		count:                         count,
		markUnavailableOnWriteFailure: markUnavailableOnWriteFailure,
		coils:                         make([]domain.CoilState, count),
	}
}

// Update reads every coil. Any failure marks the bank unavailable and keeps the cache.
func (s *SwitchDevice) Update(ctx context.Context) (domain.Status, error) {
	values, err := s.client.ReadCoils(ctx, uint16(s.count))
	if err == nil && len(values) < s.count {
		err = fmt.Errorf("hub: got %d coils, expected %d", len(values), s.count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = domain.StatusUnavailable
		return s.status, err
	}
	for i := 0; i < s.count; i++ {
		s.coils[i] = domain.CoilStateOf(values[i])
	}
	s.status = domain.StatusAvailable
	return s.status, nil
}

// CheckIndex returns a *CoilRangeError when index is out of range.
func (s *SwitchDevice) CheckIndex(index int) error {
	if index < 0 || index >= s.count {
		return &CoilRangeError{Index: index, Count: s.count}
	}
	return nil
}

// WriteCoil sets one coil. The caller holds the line. The cache changes only
// for that index and only on success; availability is not touched unless
// configured to.
func (s *SwitchDevice) WriteCoil(ctx context.Context, index int, on bool) error {
	if err := s.CheckIndex(index); err != nil {
		return err
	}
	err := s.client.WriteCoil(ctx, uint16(index), on)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.markUnavailableOnWriteFailure {
			s.status = domain.StatusUnavailable
		}
		return err
	}
	s.coils[index] = domain.CoilStateOf(on)
	return nil
}

func (s *SwitchDevice) Count() int {
	return s.count
}

func (s *SwitchDevice) Coil(index int) domain.CoilState {
	if s.CheckIndex(index) != nil {
		return domain.CoilUnknown
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coils[index]
}

func (s *SwitchDevice) Bank() domain.CoilBank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CoilBank{
		Coils:  slices.Clone(s.coils),
		Status: s.status,
	}
}

func (s *SwitchDevice) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
