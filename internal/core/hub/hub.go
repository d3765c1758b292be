package hub

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/pkg/cc301"
	"github.com/berfenger/cc301wb2mqtt/pkg/wbmr"
	"go.uber.org/zap"
)

type Config struct {
	DeviceName   string
	Host         string
	ScanInterval time.Duration
	LockTimeout  time.Duration
	CoilCount    int

	MeterMarkUnavailableOnFailure       bool
	SwitchMarkUnavailableOnWriteFailure bool
}

// Hub serializes every transport operation of the meter and the relay bank
// that share one gateway, and polls both on a fixed interval.
type Hub struct {
	id       string
	name     string
	line     *Line
	meter    *MeterDevice
	switcher *SwitchDevice
	devices  []Device

	scanInterval time.Duration
	lockTimeout  time.Duration
	logger       *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
}

var hubIdSanitizer = regexp.MustCompile("[^a-z0-9_]")

// HubId derives the hub id from the gateway host.
func HubId(host string) string {
	return hubIdSanitizer.ReplaceAllString(strings.ToLower(host), "_")
}

func New(cfg Config, meterReader cc301.Reader, coilClient wbmr.CoilClient, logger *zap.Logger) (*Hub, error) {
	if cfg.Host == "" {
		return nil, errors.New("hub: host is required")
	}
	if cfg.ScanInterval <= 0 || cfg.LockTimeout <= 0 {
		return nil, errors.New("hub: scan interval and lock timeout must be > 0")
	}
	if cfg.CoilCount <= 0 || cfg.CoilCount > wbmr.MaxCoilCount {
		return nil, fmt.Errorf("hub: coil count must be in [1, %d]", wbmr.MaxCoilCount)
	}
	if meterReader == nil || coilClient == nil {
		return nil, errors.New("hub: meter reader and coil client are required")
	}

	id := HubId(cfg.Host)
	meter := NewMeterDevice(METER_ID_PREFIX+id, cfg.DeviceName, meterReader, cfg.MeterMarkUnavailableOnFailure)
	switcher := NewSwitchDevice(SWITCH_ID_PREFIX+id, cfg.DeviceName, coilClient, cfg.CoilCount, cfg.SwitchMarkUnavailableOnWriteFailure)

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		id:           id,
		name:         fmt.Sprintf("%s_%s", cfg.DeviceName, cfg.Host),
		line:         NewLine(),
		meter:        meter,
		switcher:     switcher,
		devices:      []Device{meter, switcher},
		scanInterval: cfg.ScanInterval,
		lockTimeout:  cfg.LockTimeout,
		logger:       logger.With(zap.String("component", "hub"), zap.String("hub", id)),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}, nil
}

func (h *Hub) Id() string {
	return h.id
}

func (h *Hub) Name() string {
	return h.name
}

func (h *Hub) Info() domain.DeviceInfo {
	return domain.DeviceInfo{Model: HUB_MODEL}
}

// Devices returns the devices in polling order.
func (h *Hub) Devices() []Device {
	return h.devices
}

func (h *Hub) Meter() *MeterDevice {
	return h.meter
}

func (h *Hub) Switch() *SwitchDevice {
	return h.switcher
}

// Running reports whether the polling loop is alive.
func (h *Hub) Running() bool {
	return h.started.Load() && h.ctx.Err() == nil
}

// Start launches the polling loop: one cycle right away, then one per scan interval.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		if h.ctx.Err() != nil {
			return
		}
		h.started.Store(true)
		go h.run()
	})
}

// Close stops the loop, aborts in-flight transport calls and pending commands,
// and waits for the loop to exit.
func (h *Hub) Close() error {
	h.cancel()
	if h.started.Load() {
		<-h.done
	}
	return nil
}

func (h *Hub) run() {
	defer close(h.done)
	h.logger.Info("hub: polling started", zap.Duration("interval", h.scanInterval))

	h.PollOnce(h.ctx)

	ticker := time.NewTicker(h.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub: polling stopped")
			return
		case <-ticker.C:
			h.PollOnce(h.ctx)
		}
	}
}

// PollOnce runs one update cycle over all devices in order.
func (h *Hub) PollOnce(ctx context.Context) {
	for _, d := range h.devices {
		if ctx.Err() != nil {
			return
		}
		h.pollDevice(ctx, d)
	}
}

func (h *Hub) pollDevice(ctx context.Context, d Device) {
	logger := h.logger.With(zap.String("device", d.Id()))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("hub: device update panicked", zap.Any("panic", r))
		}
	}()

	if err := h.line.AcquireWithin(ctx, h.lockTimeout); err != nil {
		if errors.Is(err, ErrLineBusy) {
			logger.Warn("hub: line busy, skipping device this cycle", zap.Duration("lock_timeout", h.lockTimeout))
		}
		return
	}
	status, err := h.update(ctx, d)
	if err != nil {
		logger.Warn("hub: device update failed", zap.Stringer("status", status), zap.Error(err))
	} else {
		logger.Debug("hub: device updated", zap.Stringer("status", status))
	}

	d.Observers().Publish()
}

func (h *Hub) update(ctx context.Context, d Device) (domain.Status, error) {
	defer h.line.Release()
	return d.Update(ctx)
}

// SetCoil switches one relay coil. It waits for the line without a timeout;
// only ctx or Close abort the wait. An invalid index fails before any wait or I/O.
func (h *Hub) SetCoil(ctx context.Context, index int, on bool) error {
	if err := h.switcher.CheckIndex(index); err != nil {
		return err
	}
	if h.ctx.Err() != nil {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	if err := h.line.Acquire(ctx); err != nil {
		if h.ctx.Err() != nil {
			return ErrClosed
		}
		return err
	}
	if err := h.writeCoil(ctx, index, on); err != nil {
		h.logger.Warn("hub: coil write failed", zap.Int("coil", index), zap.Bool("on", on), zap.Error(err))
		return fmt.Errorf("hub: set coil %d: %w", index, err)
	}
	h.logger.Debug("hub: coil written", zap.Int("coil", index), zap.Bool("on", on))

	h.switcher.Observers().Publish()
	return nil
}

func (h *Hub) writeCoil(ctx context.Context, index int, on bool) error {
	defer h.line.Release()
	return h.switcher.WriteCoil(ctx, index, on)
}
