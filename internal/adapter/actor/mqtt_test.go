package actor

import (
	"testing"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/core/events"
	"github.com/nemotek/counters2mqtt/internal/mqtt"
	"github.com/nemotek/counters2mqtt/internal/util"
	"github.com/nemotek/counters2mqtt/internal/util/actorutil"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.NewEventStream()

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)

	es.Publish(events.AvailabilityUpdateEvent(115, true))
	es.Publish(domain.MeterValueUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: "vl1",
		},
		CounterId: 115,
		Key:       "vl1",
		Value:     230.1,
	})

	time.Sleep(500 * time.Millisecond)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func testMQTTActor() *MQTTActor {
	cfg := util.LoadTestConfig()
	act := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	act.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)
	return act
}

func TestEvent2MQTTMessages(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	act := testMQTTActor()

	counter := energy_counters.CounterConfiguration{CounterId: 115, UnitId: 81, CounterName: "Geral #115", CompanyId: "ACME"}
	record := energy_counters.NewOutputRecord(counter, "contrel_ud3h",
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), map[string]float64{"vl1": 230.0}, []string{"vl1"})

	msgs := act.event2MQTTMessages(events.RecordToUpdateEvents(record)[0])
	require.Len(msgs, 1)
	assert.Equal("counters/meter/115/state", msgs[0].topic)
	assert.JSONEq(`{"companyId":"ACME","timestamp":"2024-05-01T10:00:00.000Z","counterId":115,"counterName":"Geral #115","vl1":230}`, msgs[0].message)
	assert.False(msgs[0].retain)

	msgs = act.event2MQTTMessages(events.RecordToUpdateEvents(record)[1])
	require.Len(msgs, 1)
	assert.Equal("counters/meter/115/sensor/vl1/state", msgs[0].topic)
	assert.Equal("230", msgs[0].message)

	msgs = act.event2MQTTMessages(events.AvailabilityUpdateEvent(115, false))
	require.Len(msgs, 1)
	assert.Equal("counters/meter/115/availability", msgs[0].topic)
	assert.Equal(mqtt.MQTT_PAYLOAD_OFFLINE, msgs[0].message)
	assert.True(msgs[0].retain)

	down := energy_counters.HealthEvent{
		CounterId:   115,
		CounterName: "Geral #115",
		CompanyId:   "ACME",
		Host:        "172.16.5.11",
		Down:        true,
		Timestamp:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Topic:       "ACME Comm Error Geral #115 DOWN",
	}
	msgs = act.event2MQTTMessages(events.HealthToUpdateEvent(115, down))
	require.Len(msgs, 2)
	assert.Equal("counters/meter/115/health", msgs[1].topic)
	assert.Contains(msgs[1].message, `"topic":"ACME Comm Error Geral #115 DOWN"`)
	assert.Contains(msgs[1].message, `"down":true`)

	msgs = act.event2MQTTMessages(events.BridgeOnlineUpdateEvent(true))
	require.Len(msgs, 1)
	assert.Equal("counters/bridge/state", msgs[0].topic)
	assert.Equal(mqtt.MQTT_PAYLOAD_ONLINE, msgs[0].message)

	assert.Nil(act.event2MQTTMessages("unknown"))
}
