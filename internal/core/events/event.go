package events

import (
	. "github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"
)

// DeviceToUpdateEvents snapshots a hub device into the events the bridge publishes.
func DeviceToUpdateEvents(d hub.Device) []SensorUpdateEvent {
	switch dev := d.(type) {
	case *hub.MeterDevice:
		return MeterReadingToUpdateEvents(dev.Id(), dev.Reading())
	case *hub.SwitchDevice:
		return CoilBankToUpdateEvents(dev.Id(), dev.Bank())
	default:
		return []SensorUpdateEvent{availabilityEvent(d.Id(), d.Status())}
	}
}

func MeterReadingToUpdateEvents(meterId string, reading MeterReading) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	events = append(events, availabilityEvent(meterId, reading.Status))

	// nothing read yet
	if !reading.HasValues() {
		return events
	}

	// Summary power
	events = append(events, floatEvent(MeterSensorId(meterId, SENSOR_ID_SUMMARY_POWER), reading.SummaryPower))

	// Phase powers and voltages
	for i := 0; i < 3; i++ {
		events = append(events, floatEvent(MeterSensorId(meterId, phasePowerIds[i]), reading.PhasePower[i]))
	}
	for i := 0; i < 3; i++ {
		events = append(events, floatEvent(MeterSensorId(meterId, phaseVoltageIds[i]), reading.PhaseVoltage[i]))
	}

	return events
}

func CoilBankToUpdateEvents(switchId string, bank CoilBank) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	events = append(events, availabilityEvent(switchId, bank.Status))

	for i, coil := range bank.Coils {
		// unknown coils keep whatever HA shows
		if !coil.Known() {
			continue
		}
		events = append(events, LightUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: CoilLightId(switchId, i),
			},
			Value: coil.IsOn(),
		})
	}

	return events
}

func availabilityEvent(deviceId string, status Status) SensorUpdateEvent {
	return AvailabilityUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: deviceId,
		},
		Value: status,
	}
}

func floatEvent(id string, value float64) SensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: 2,
	}
}
