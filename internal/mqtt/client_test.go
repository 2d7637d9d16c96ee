package mqtt

import (
	"testing"

	"github.com/nemotek/counters2mqtt/internal/config"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/core/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterCommandParse(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	r := meterCommandExtractor("loremTopic")
	cmd, err := parseMeterCommand(r, "loremTopic/meter/115/command", "collect")
	require.NoError(err)

	assert.Equal("115", cmd.DeviceId, "device extract")
	assert.Equal(115, cmd.CounterId)
	assert.Equal("collect", cmd.Payload)
}

func TestMeterCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := meterCommandExtractor("loremTopic")

	_, err := parseMeterCommand(r, "loremTopic/meter/115/state", "collect")
	assert.ErrorIs(err, ErrInvalidCommand)

	_, err = parseMeterCommand(r, "loremTopic/meter/abc/command", "collect")
	assert.ErrorIs(err, ErrInvalidCommand)

	_, err = parseMeterCommand(r, "other/loremTopic/meter/1/command", "collect")
	assert.ErrorIs(err, ErrInvalidCommand, "anchored to the base topic")
}

func testClient() *MQTTClient {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "counters",
		},
	}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	assert.Equal("counters/bridge/state", c.BridgeStateTopic())
	assert.Equal("counters/meter/115/state", c.MeterStateTopic(115))
	assert.Equal("counters/meter/115/sensor/tensaoL1/state", c.MeterSensorStateTopic(115, "tensaoL1"))
	assert.Equal("counters/meter/115/availability", c.MeterAvailabilityTopic(115))
	assert.Equal("counters/meter/115/command", c.MeterCommandTopic(115))
	assert.Equal("homeassistant", c.DiscoveryPrefix())
}

func TestDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	device := domain.Device{Id: "counters_meter_115_abcdef01", Name: "Geral #115"}
	sensors := events.MeterSensors(device, 115, []string{"tensaoL1"})

	availability := GenericSensorToHADiscoveryMessage(c, sensors[0])
	assert.Equal("counters/meter/115/availability", availability.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, availability.PayloadOn)

	voltage := GenericSensorToHADiscoveryMessage(c, sensors[1])
	assert.Equal("counters/meter/115/sensor/tensaoL1/state", voltage.StateTopic)
	assert.Equal("V", voltage.UnitOfMeasurement)
	assert.Equal("all", voltage.AvailabilityMode)
	assert.Len(voltage.Availability, 2)
	assert.Equal([]string{device.Id}, voltage.Device.Id)

	assert.Equal("homeassistant/sensor/counters_meter_115_abcdef01/tensaoL1/config",
		HADiscoverySensorTopic(c.DiscoveryPrefix(), sensors[1]))
}
