package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type LightUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// AvailabilityUpdateEvent carries the status of a field device; Id is the device id.
type AvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Value Status
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}
