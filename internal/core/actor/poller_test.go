package actor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/util"
	"github.com/nemotek/counters2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPollerIntervalDelay(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Poll.IntervalMillis = 15000
	poller := NewPollerActor(&cfg, 115, nil, zap.NewNop())

	delay, err := poller.nextDelay()
	assert.NoError(err)
	assert.Equal(15*time.Second, delay)
}

func TestPollerCronDelay(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.Poll.Cron = "0 */5 * * * *"
	poller := NewPollerActor(&cfg, 115, nil, zap.NewNop())
	trigger, err := quartz.NewCronTrigger(cfg.Poll.Cron)
	require.NoError(err)
	poller.trigger = trigger
	poller.now = func() time.Time { return time.Date(2024, 5, 1, 10, 2, 30, 0, time.UTC) }

	delay, err := poller.nextDelay()
	assert.NoError(err)
	assert.Equal(2*time.Minute+30*time.Second, delay)
}

func TestPollerActorCollects(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	var collects atomic.Int32
	meter := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.CollectRequest); ok {
			collects.Add(1)
			ctx.Respond(domain.CollectResponse{CounterId: 115})
		}
	}))

	cfg := util.LoadTestConfig()
	cfg.Poll.IntervalMillis = 60000
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, 115, meter, logger)
	}))

	context.Send(pid, domain.PollNowRequest{})
	time.Sleep(300 * time.Millisecond)
	assert.Equal(int32(1), collects.Load())

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(err)
	health := result.(domain.ActorHealthResponse)
	assert.True(health.Healthy)
	assert.Equal("idle collected=1 failed=0", health.State)

	context.Stop(pid)
	context.Stop(meter)
	as.Shutdown()
}
