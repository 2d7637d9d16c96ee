package events

import (
	"testing"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCounter() energy_counters.CounterConfiguration {
	return energy_counters.CounterConfiguration{
		CounterId:   115,
		UnitId:      81,
		CounterName: "Geral #115",
		CompanyId:   "ACME",
	}
}

func TestRecordToUpdateEvents(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	model, err := energy_counters.LookupModel("contrel_ud3h")
	require.NoError(err)

	values := make(map[string]float64)
	for _, k := range model.Keys() {
		values[k] = 1.5
	}
	record := energy_counters.NewOutputRecord(testCounter(), model.Name, time.Now(), values, model.Keys())

	evts := RecordToUpdateEvents(record)
	require.Len(evts, len(model.Keys())+1)

	reading, ok := evts[0].(domain.MeterReadingEvent)
	require.True(ok, "first event is the full reading")
	assert.Equal(115, reading.CounterId)
	assert.Equal(SENSOR_ID_METER_STATE, reading.SensorId())

	for i, k := range model.Keys() {
		update, ok := evts[i+1].(domain.MeterValueUpdateEvent)
		require.True(ok)
		assert.Equal(k, update.Key)
		assert.Equal(1.5, update.Value)
	}
}

func TestRecordToUpdateEventsNil(t *testing.T) {

	assert := assert.New(t)

	assert.Empty(RecordToUpdateEvents(nil))
}

func TestHealthToUpdateEvent(t *testing.T) {

	assert := assert.New(t)

	evt := HealthToUpdateEvent(115, energy_counters.HealthEvent{CounterId: 115, Down: true})
	availability, ok := evt.(domain.MeterAvailabilityEvent)
	assert.True(ok)
	assert.False(availability.Available)
	assert.True(availability.Health.Down)

	evt = HealthToUpdateEvent(115, energy_counters.HealthEvent{CounterId: 115, Down: false})
	assert.True(evt.(domain.MeterAvailabilityEvent).Available)
}

func TestMeterSensors(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	model, err := energy_counters.LookupModel("carlo_gavazzi_em530")
	require.NoError(err)

	device := MeterDevice(model, testCounter())
	sensors := MeterSensors(device, 115, model.Keys())
	require.Len(sensors, len(model.Keys())+1)

	assert.Equal(SENSOR_ID_METER_AVAILABILITY, sensors[0].Id)
	assert.Equal(device, sensors[0].Device, "first sensor carries the full device")
	assert.Equal(IdDevice(device), sensors[1].Device)

	byKey := make(map[string]domain.GenericSensor)
	for _, s := range sensors[1:] {
		byKey[s.Key] = s
		assert.Equal(115, s.CounterId)
		assert.Contains(s.UniqueId, device.Id)
	}
	assert.Equal(DEVICE_CLASS_VOLTAGE, byKey["tensaoL1"].DeviceClass)
	assert.Equal("V", byKey["tensaoL1"].UnitOfMeasurement)
	assert.Equal(DEVICE_CLASS_CURRENT, byKey["correnteL2"].DeviceClass)
	assert.Equal(DEVICE_CLASS_ENERGY, byKey["energiaActiva"].DeviceClass)
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, byKey["energiaActiva"].StateClass)
	assert.Equal("kvarh", byKey["energiaReactiva"].UnitOfMeasurement)
	assert.Equal(DEVICE_CLASS_POWER_FACTOR, byKey["factorPotencia"].DeviceClass)
	assert.Equal(DEVICE_CLASS_FREQUENCY, byKey["frequencia"].DeviceClass)
	assert.Equal("%", byKey["thdTensaoL1"].UnitOfMeasurement)
	assert.Equal(DEVICE_CLASS_POWER, byKey["potenciaActiva"].DeviceClass)
	assert.Equal(DEVICE_CLASS_REACTIVE_POWER, byKey["potenciaReactiva"].DeviceClass)
}

func TestClassifyUnknownKey(t *testing.T) {

	assert := assert.New(t)

	_, ok := classify("meterNumber")
	assert.False(ok)
	class, ok := classify("pfl1")
	assert.True(ok)
	assert.Equal(DEVICE_CLASS_POWER_FACTOR, class.deviceClass)
}

func TestBridgeDevice(t *testing.T) {

	assert := assert.New(t)

	d1 := BridgeDevice("counters")
	d2 := BridgeDevice("counters")
	d3 := BridgeDevice("other")
	assert.Equal(d1.Id, d2.Id)
	assert.NotEqual(d1.Id, d3.Id)
	sensors := BridgeSensors(d1)
	assert.Len(sensors, 1)
	assert.Equal(SENSOR_TYPE_BINARY, sensors[0].SensorType)
}
