package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	. "github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_METER_STATE        = "state"
	SENSOR_ID_METER_AVAILABILITY = "availability"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_APPARENT_POWER  = "apparent_power"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_REACTIVE_POWER  = "reactive_power"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

// sensorClass describes how a record key is presented to Home Assistant.
type sensorClass struct {
	prefixes    []string
	unit        string
	deviceClass string
	stateClass  string
	icon        string
}

// evaluated in order, first prefix match wins
var sensorClasses = []sensorClass{
	{prefixes: []string{"thd"}, unit: "%", stateClass: STATE_CLASS_MEASUREMENT, icon: "mdi:sine-wave"},
	{prefixes: []string{"energiareactiva", "energyreactive"}, unit: "kvarh", stateClass: STATE_CLASS_TOTAL_INCREASING},
	{prefixes: []string{"energiaaparente", "energyapparent"}, unit: "kVAh", stateClass: STATE_CLASS_TOTAL_INCREASING},
	{prefixes: []string{"energia", "energy"}, unit: "kWh", deviceClass: DEVICE_CLASS_ENERGY, stateClass: STATE_CLASS_TOTAL_INCREASING},
	{prefixes: []string{"factorpotencia", "powerfactor", "pf"}, deviceClass: DEVICE_CLASS_POWER_FACTOR, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"freq"}, unit: "Hz", deviceClass: DEVICE_CLASS_FREQUENCY, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"tensao", "voltage", "vl", "veq"}, unit: "V", deviceClass: DEVICE_CLASS_VOLTAGE, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"corrente", "current", "il", "ieq"}, unit: "A", deviceClass: DEVICE_CLASS_CURRENT, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"potenciareactiva", "q"}, unit: "kvar", deviceClass: DEVICE_CLASS_REACTIVE_POWER, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"potenciaaparente", "s"}, unit: "kVA", deviceClass: DEVICE_CLASS_APPARENT_POWER, stateClass: STATE_CLASS_MEASUREMENT},
	{prefixes: []string{"potencia", "power", "instantaneouspower", "maxdemand", "p"}, unit: "kW", deviceClass: DEVICE_CLASS_POWER, stateClass: STATE_CLASS_MEASUREMENT},
}

func classify(key string) (sensorClass, bool) {
	lower := strings.ToLower(key)
	for _, c := range sensorClasses {
		for _, p := range c.prefixes {
			if strings.HasPrefix(lower, p) {
				return c, true
			}
		}
	}
	return sensorClass{}, false
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("counters_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Nemotek",
		Model:        "counters2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Counters %s", md5HashShort(baseTopic)),
	}
}

func MeterDevice(model *energy_counters.Model, counter energy_counters.CounterConfiguration) Device {
	return Device{
		Id:           fmt.Sprintf("counters_meter_%d_%s", counter.CounterId, md5HashShort(counter.CompanyId+counter.CounterName)),
		Manufacturer: model.Manufacturer,
		Model:        model.Name,
		Name:         counter.CounterName,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

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

// MeterSensors returns one sensor per record key plus the availability sensor.
// Only the first sensor carries the full device description.
func MeterSensors(meterDevice Device, counterId int, keys []string) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         meterDevice,
		Id:             SENSOR_ID_METER_AVAILABILITY,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Communication",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_METER_AVAILABILITY),
		CounterId:      counterId,
	})

	for _, key := range keys {
		sensor := GenericSensor{
			Device:     IdDevice(meterDevice),
			Id:         key,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       key,
			UniqueId:   uniqueId(meterDevice.Id, key),
			CounterId:  counterId,
			Key:        key,
		}
		if class, ok := classify(key); ok {
			sensor.UnitOfMeasurement = class.unit
			sensor.DeviceClass = class.deviceClass
			sensor.StateClass = class.stateClass
			sensor.Icon = class.icon
		} else {
			sensor.EntityCategory = ENTITY_CLASS_DIAGNOSTIC
			sensor.EnabledByDefault = optionalBool(false)
		}
		sensors = append(sensors, sensor)
	}

	return sensors
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

func optionalBool(value bool) *bool {
	return &value
}
