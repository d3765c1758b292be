package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"

	. "github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_SUMMARY_POWER        = "summary_power"
	SENSOR_ID_FIRST_PHASE_POWER    = "first_phase_power"
	SENSOR_ID_SECOND_PHASE_POWER   = "second_phase_power"
	SENSOR_ID_THIRD_PHASE_POWER    = "third_phase_power"
	SENSOR_ID_FIRST_PHASE_VOLTAGE  = "first_phase_voltage"
	SENSOR_ID_SECOND_PHASE_VOLTAGE = "second_phase_voltage"
	SENSOR_ID_THIRD_PHASE_VOLTAGE  = "third_phase_voltage"
	LIGHT_ID_COIL_INFIX            = "_coil_"
	STATE_CLASS_MEASUREMENT        = "measurement"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_VOLTAGE           = "voltage"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
)

var (
	phasePowerIds   = [3]string{SENSOR_ID_FIRST_PHASE_POWER, SENSOR_ID_SECOND_PHASE_POWER, SENSOR_ID_THIRD_PHASE_POWER}
	phaseVoltageIds = [3]string{SENSOR_ID_FIRST_PHASE_VOLTAGE, SENSOR_ID_SECOND_PHASE_VOLTAGE, SENSOR_ID_THIRD_PHASE_VOLTAGE}
	phaseNames      = [3]string{"First phase", "Second phase", "Third phase"}

	coilLightIdExtractor = regexp.MustCompile("^([a-z0-9_]+)" + LIGHT_ID_COIL_INFIX + "([0-9]+)$")
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("cc301wb_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "CC301WB2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("CC301WB bridge %s", md5HashShort(baseTopic)),
	}
}

func FieldDevice(d hub.Device, via Device) Device {
	return Device{
		Id:           d.Id(),
		Name:         d.Name(),
		Model:        d.Info().Model,
		Manufacturer: d.Info().Manufacturer,
		ViaDevice:    via.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func MeterSensorId(meterId, sensor string) string {
	return fmt.Sprintf("%s_%s", meterId, sensor)
}

func CoilLightId(switchId string, coil int) string {
	return fmt.Sprintf("%s%s%d", switchId, LIGHT_ID_COIL_INFIX, coil)
}

// ParseCoilLightId splits a light id built by CoilLightId.
func ParseCoilLightId(id string) (switchId string, coil int, ok bool) {
	matches := coilLightIdExtractor.FindStringSubmatch(id)
	if len(matches) != 3 {
		return "", 0, false
	}
	coil, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, false
	}
	return matches[1], coil, true
}

func MeterSensors(meterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Summary power
	sensors = append(sensors, powerSensor(meterDevice, SENSOR_ID_SUMMARY_POWER, "Summary power"))

	// Phase powers
	for i := range phasePowerIds {
		sensors = append(sensors, powerSensor(meterDevice, phasePowerIds[i], phaseNames[i]+" power"))
	}

	// Phase voltages
	for i := range phaseVoltageIds {
		id := MeterSensorId(meterDevice.Id, phaseVoltageIds[i])
		sensors = append(sensors, GenericSensor{
			Device:            meterDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              phaseNames[i] + " voltage",
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_VOLTAGE,
			UnitOfMeasurement: "V",
			UniqueId:          uniqueId(meterDevice.Id, phaseVoltageIds[i]),
			AvailabilityId:    meterDevice.Id,
		})
	}

	return sensors
}

func powerSensor(meterDevice Device, sensor, name string) GenericSensor {
	return GenericSensor{
		Device:            meterDevice,
		Id:                MeterSensorId(meterDevice.Id, sensor),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(meterDevice.Id, sensor),
		AvailabilityId:    meterDevice.Id,
	}
}

func CoilLights(switchDevice Device, count int) []GenericLight {

	var lights []GenericLight

	for i := 0; i < count; i++ {
		lights = append(lights, GenericLight{
			Device:         switchDevice,
			Id:             CoilLightId(switchDevice.Id, i),
			Name:           fmt.Sprintf("Relay %d", i),
			UniqueId:       uniqueId(switchDevice.Id, fmt.Sprintf("_%d", i)),
			Icon:           "mdi:electric-switch",
			AvailabilityId: switchDevice.Id,
		})
	}

	return lights
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// HubDiscovery lists every entity the bridge exposes for h. Only the first
// entity of each device carries the full device block.
func HubDiscovery(baseTopic string, h *hub.Hub) ([]GenericSensor, []GenericLight) {
	bridgeDevice := BridgeDevice(baseTopic)
	sensors := BridgeSensors(bridgeDevice)

	meterDevice := FieldDevice(h.Meter(), bridgeDevice)
	meterSensors := MeterSensors(meterDevice)
	for i := range meterSensors {
		if i > 0 {
			meterSensors[i].Device = IdDevice(meterDevice)
		}
	}
	sensors = append(sensors, meterSensors...)

	switchDevice := FieldDevice(h.Switch(), bridgeDevice)
	lights := CoilLights(switchDevice, h.Switch().Count())
	for i := range lights {
		if i > 0 {
			lights[i].Device = IdDevice(switchDevice)
		}
	}

	return sensors, lights
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
