package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/nemotek/counters2mqtt/internal/adapter/actor"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
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

func fillContrel(mem *energy_counters.MemoryTransport, unitId uint8) {
	mem.FillRange(unitId, 4098, 22)
	mem.FillRange(unitId, 4134, 32)
	mem.FillRange(unitId, 4166, 6)
	mem.SetRegisters(unitId, 4098, energy_counters.EncodeUint32BE(230000)...)
}

func TestMasterActor(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	mem := energy_counters.NewMemoryTransport()
	fillContrel(mem, 81)

	collectors := make(map[int]*energy_counters.MeterDataCollector)
	for _, m := range cfg.Meters {
		c, err := energy_counters.CreateCollectorForModel(m.Model, m.Counter(), m.Connection(), mem, logger, nil)
		require.NoError(err)
		collectors[m.CounterId] = c
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, nil, func(counterId int, es *eventstream.EventStream) *adactor.MeterActor {
			return adactor.NewMeterActor(collectors[counterId], es, 2*time.Second, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	}, actor.WithSupervisor(Supervisor()))
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(err)

	// first poll tick fires after poll.interval_millis
	time.Sleep(2500 * time.Millisecond)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.True(healthResp.Healthy, "healthy is true")
	assert.Contains(healthResp.State, "meter_115=tcp")

	res, err = context.RequestFuture(pid, domain.GetReadingsRequest{}, 2*time.Second).Result()
	require.NoError(err)
	readings := res.(domain.GetReadingsResponse)
	require.False(readings.HasResponseError())
	require.Len(readings.Readings, 1)
	assert.Equal(115, readings.Readings[0].CounterId)
	assert.True(readings.Readings[0].Available)
	require.NotNil(readings.Readings[0].Record)
	value, _ := readings.Readings[0].Record.Get("vl1")
	assert.Equal(230.0, value)

	res, err = context.RequestFuture(pid, domain.GetReadingsRequest{CounterId: 999}, 2*time.Second).Result()
	require.NoError(err)
	assert.ErrorIs(res.(domain.GetReadingsResponse).GetResponseError(), domain.ErrUnknownMeter)

	// reconnect command reopens the transport
	mem.ResetAttempts()
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId:  "115",
		CounterId: 115,
		Command:   "meter",
		Payload:   mqtt.MQTT_COMMAND_RECONNECT,
	}})
	time.Sleep(500 * time.Millisecond)
	assert.Equal([]energy_counters.Protocol{energy_counters.ProtocolTCP}, mem.OpenAttempts())

	context.Stop(pid)

	as.Shutdown()
}

func TestDiscoverySensors(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	sensors, err := DiscoverySensors(&cfg)
	require.NoError(err)

	model, err := energy_counters.LookupModel("contrel_ud3h")
	require.NoError(err)
	// bridge + availability + one per key
	assert.Len(sensors, 2+len(model.Keys()))
	assert.NotEmpty(sensors[1].Device.ViaDevice)

	cfg.Meters[0].Model = "nope"
	_, err = DiscoverySensors(&cfg)
	assert.ErrorIs(err, energy_counters.ErrUnknownModel)
}
