package events

import (
	"context"
	"testing"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"
	"github.com/berfenger/cc301wb2mqtt/pkg/cc301"
	"github.com/berfenger/cc301wb2mqtt/pkg/wbmr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub(t *testing.T, coils *wbmr.TestCoilClient) *hub.Hub {
	h, err := hub.New(hub.Config{
		DeviceName:   "CC-301&WB",
		Host:         "10.0.0.7",
		ScanInterval: time.Second,
		LockTimeout:  time.Second,
		CoilCount:    3,
	}, cc301.CreateTestReader(), coils, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestMeterEventsBeforeFirstRead(t *testing.T) {

	assert := assert.New(t)

	events := MeterReadingToUpdateEvents("electric_meter_x", domain.MeterReading{})
	require.Len(t, events, 1)
	av, ok := events[0].(domain.AvailabilityUpdateEvent)
	assert.True(ok)
	assert.Equal("electric_meter_x", av.Id)
	assert.Equal(domain.StatusUnknown, av.Value)
}

func TestDeviceToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	coils := wbmr.NewTestCoilClient(3)
	coils.Set(1, true)
	h := testHub(t, coils)
	h.PollOnce(context.Background())

	events := DeviceToUpdateEvents(h.Meter())
	require.Len(t, events, 8)
	summary, ok := events[1].(domain.FloatSensorUpdateEvent)
	assert.True(ok)
	assert.Equal("electric_meter_10_0_0_7_summary_power", summary.Id)
	assert.Equal(2450.5, summary.Value)
	assert.Equal(uint(2), summary.Decimals)
	voltage := events[7].(domain.FloatSensorUpdateEvent)
	assert.Equal("electric_meter_10_0_0_7_third_phase_voltage", voltage.Id)

	events = DeviceToUpdateEvents(h.Switch())
	require.Len(t, events, 4)
	assert.Equal(domain.StatusAvailable, events[0].(domain.AvailabilityUpdateEvent).Value)
	light := events[2].(domain.LightUpdateEvent)
	assert.Equal("modbus_switcher_10_0_0_7_coil_1", light.Id)
	assert.True(light.Value)
}

func TestUnknownCoilsAreNotPublished(t *testing.T) {

	bank := domain.CoilBank{
		Coils:  []domain.CoilState{domain.CoilUnknown, domain.CoilOn, domain.CoilUnknown},
		Status: domain.StatusUnknown,
	}
	events := CoilBankToUpdateEvents("sw", bank)
	require.Len(t, events, 2)
	assert.Equal(t, "sw_coil_1", events[1].SensorId())
}

func TestParseCoilLightId(t *testing.T) {

	assert := assert.New(t)

	id := CoilLightId("modbus_switcher_10_0_0_7", 12)
	switchId, coil, ok := ParseCoilLightId(id)
	assert.True(ok)
	assert.Equal("modbus_switcher_10_0_0_7", switchId)
	assert.Equal(12, coil)

	_, _, ok = ParseCoilLightId("electric_meter_x_summary_power")
	assert.False(ok)
	_, _, ok = ParseCoilLightId("sw_coil_")
	assert.False(ok)
}

func TestHubDiscovery(t *testing.T) {

	assert := assert.New(t)

	h := testHub(t, wbmr.NewTestCoilClient(3))
	sensors, lights := HubDiscovery("cc301wb", h)

	// bridge + 7 meter sensors
	require.Len(t, sensors, 8)
	assert.Equal(SENSOR_ID_BRIDGE_STATE, sensors[0].Id)
	assert.Equal(SENSOR_TYPE_BINARY, sensors[0].SensorType)

	meter := sensors[1]
	assert.Equal("CC-301", meter.Device.Model)
	assert.Equal("Gran Electro", meter.Device.Manufacturer)
	assert.Equal(sensors[0].Device.Id, meter.Device.ViaDevice)
	assert.Equal("W", meter.UnitOfMeasurement)
	assert.Equal(h.Meter().Id(), meter.AvailabilityId)
	assert.Empty(sensors[2].Device.Model, "only the first entity carries the full device")
	assert.Equal("V", sensors[7].UnitOfMeasurement)

	require.Len(t, lights, 3)
	assert.Equal("WB-MR", lights[0].Device.Model)
	assert.Equal("Wirenboard", lights[0].Device.Manufacturer)
	assert.Equal(CoilLightId(h.Switch().Id(), 2), lights[2].Id)
	assert.Equal(h.Switch().Id(), lights[2].AvailabilityId)
}
