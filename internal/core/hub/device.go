package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
)

const (
	METER_ID_PREFIX  = "electric_meter_"
	SWITCH_ID_PREFIX = "modbus_switcher_"

	METER_MODEL         = "CC-301"
	METER_MANUFACTURER  = "Gran Electro"
	SWITCH_MODEL        = "WB-MR"
	SWITCH_MANUFACTURER = "Wirenboard"
	HUB_MODEL           = "CC-301 and modbus switcher"
)

var (
	ErrLineBusy = errors.New("hub: transport line busy")
	ErrClosed   = errors.New("hub: closed")
)

// CoilRangeError rejects a coil index outside [0, Count).
type CoilRangeError struct {
	Index int
	Count int
}

func (e *CoilRangeError) Error() string {
	return fmt.Sprintf("hub: coil %d out of range [0, %d)", e.Index, e.Count)
}

// Device is one field device behind the hub's line.
type Device interface {
	Id() string
	Name() string
	Info() domain.DeviceInfo
	Status() domain.Status
	Observers() *Observers
	// Update performs the device's poll. The caller holds the line.
	Update(ctx context.Context) (domain.Status, error)
}

type deviceBase struct {
	id        string
	name      string
	info      domain.DeviceInfo
	observers Observers
}

func (d *deviceBase) Id() string {
	return d.id
}

func (d *deviceBase) Name() string {
	return d.name
}

func (d *deviceBase) Info() domain.DeviceInfo {
	return d.info
}

func (d *deviceBase) Observers() *Observers {
	return &d.observers
}
