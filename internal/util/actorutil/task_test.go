package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runInActor executes fn inside a throwaway actor and returns what it sent to itself.
func runInActor(t *testing.T, fn func(ctx actor.Context)) []any {
	as := actor.NewActorSystem()
	defer as.Shutdown()

	received := make(chan any, 8)
	props := actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			fn(ctx)
			ctx.Send(ctx.Self(), "done")
		case string:
			close(received)
		default:
			received <- msg
		}
	})
	pid := as.Root.Spawn(props)
	defer as.Root.Stop(pid)

	var out []any
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-received:
			if !ok {
				return out
			}
			out = append(out, msg)
		case <-timeout:
			require.FailNow(t, "actor did not finish")
		}
	}
}

func TestBackgroundTaskPipe(t *testing.T) {

	assert := assert.New(t)

	out := runInActor(t, func(ctx actor.Context) {
		MapBackgroundTask(NewBackgroundTaskNoError(ctx, func() int { return 21 }), func(v int) int {
			return v * 2
		}).PipeTo(ctx.Self())
	})
	assert.Equal([]any{42}, out)
}

func TestBackgroundTaskRecover(t *testing.T) {

	assert := assert.New(t)

	out := runInActor(t, func(ctx actor.Context) {
		NewBackgroundTask(ctx, func() (int, error) {
			return 0, errors.New("no response")
		}).Recover(func(err error) int {
			return -1
		}).PipeTo(ctx.Self())

		// without Recover nothing is delivered
		NewBackgroundTask(ctx, func() (int, error) {
			return 0, errors.New("no response")
		}).PipeTo(ctx.Self())
	})
	assert.Equal([]any{-1}, out)
}

func TestBackgroundTaskTimeout(t *testing.T) {

	assert := assert.New(t)

	var recovered error
	start := time.Now()
	out := runInActor(t, func(ctx actor.Context) {
		NewBackgroundTaskNoError(ctx, func() int {
			time.Sleep(time.Second)
			return 1
		}).WithTimeout(50 * time.Millisecond).Recover(func(err error) int {
			recovered = err
			return 0
		}).PipeTo(ctx.Self())
	})
	assert.Equal([]any{0}, out)
	assert.Error(recovered)
	assert.Less(time.Since(start), 900*time.Millisecond)
}

func TestStashLimit(t *testing.T) {

	assert := assert.New(t)

	out := runInActor(t, func(ctx actor.Context) {
		s := NewStash(2)
		assert.Nil(s.Stash(ctx, 1))
		assert.Nil(s.Stash(ctx, 2))
		assert.Equal(1, s.Stash(ctx, 3))
		assert.Equal(2, s.Len())
		s.UnstashAll(ctx)
		assert.Equal(0, s.Len())
	})
	assert.Equal([]any{2, 3}, out)
}

func TestReplyTarget(t *testing.T) {

	assert := assert.New(t)

	other := actor.NewPID("nonhost", "other")
	runInActor(t, func(ctx actor.Context) {
		assert.Nil(ReplyTarget(ctx, domain.CollectRequest{}))
		assert.Equal(other, ReplyTarget(ctx, domain.CollectRequest{ActorRequestMixIn: domain.ReplyToPID(other)}))
	})
}

func TestParsedMQTTCommandToCommand(t *testing.T) {

	assert := assert.New(t)

	cmd, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{CounterId: 1, Payload: mqtt.MQTT_COMMAND_COLLECT})
	assert.NoError(err)
	assert.IsType(domain.PollNowRequest{}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{CounterId: 1, Payload: mqtt.MQTT_COMMAND_RECONNECT})
	assert.NoError(err)
	assert.IsType(domain.ReconnectRequest{}, cmd)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{CounterId: 1, Payload: "reboot"})
	assert.ErrorIs(err, ErrUnknownCommand)
}
