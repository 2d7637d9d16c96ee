package actor

import (
	"fmt"
	"time"

	"github.com/nemotek/counters2mqtt/internal/config"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
	. "github.com/nemotek/counters2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// PollerActor drives the collection cycle of one meter, on a fixed interval or a cron schedule.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler
	trigger   *quartz.CronTrigger
	now       func() time.Time

	counterId  int
	meterActor *actor.PID
	config     *config.Config
	lastError  error
	collected  uint64
	failed     uint64

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(config *config.Config, counterId int, meterActor *actor.PID, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:     config,
		counterId:  counterId,
		meterActor: meterActor,
		behavior:   actor.NewBehavior(),
		stash:      &Stash{},
		now:        time.Now,
		logger:     ActorLogger(domain.PollerActorId(counterId), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")

		if state.config.Poll.Cron != "" {
			trigger, err := quartz.NewCronTrigger(state.config.Poll.Cron)
			if err != nil {
				panic(err)
			}
			state.trigger = trigger
		}
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduleNext(ctx)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.PollerActorId(state.counterId),
			Healthy: true,
			State:   state.summary("idle"),
		})
	case pollTick:
		state.logger.Debug("poller@default tick")
		state.requestCollect(ctx)
		state.scheduleNext(ctx)
	case domain.PollNowRequest:
		state.logger.Debug("poller@default PollNowRequest")
		state.requestCollect(ctx)
	default:
		state.logger.Debug("poller@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollerActor) WaitingCollectReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.CollectResponse:
		if msg.HasResponseError() {
			state.failed++
			state.lastError = msg.GetResponseError()
			state.logger.Warn("poller@waiting collect failed", zap.Error(msg.GetResponseError()),
				zap.Int("consecutiveFailures", msg.State.ConsecutiveFailures), zap.Bool("unhealthy", msg.State.Unhealthy))
		} else {
			state.collected++
			state.lastError = nil
			state.logger.Debug("poller@waiting collected", zap.Int("counterId", msg.CounterId))
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case pollTick:
		// previous cycle still running
		state.logger.Warn("poller@waiting skipping tick, collection in progress")
		state.scheduleNext(ctx)
	case domain.PollNowRequest:
		state.logger.Debug("poller@waiting PollNowRequest ignored, collection in progress")
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.PollerActorId(state.counterId),
			Healthy: true,
			State:   state.summary("collecting"),
		})
	default:
		state.logger.Debug("poller@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) summary(phase string) string {
	if state.lastError != nil {
		return fmt.Sprintf("%s collected=%d failed=%d last_error=%q", phase, state.collected, state.failed, state.lastError.Error())
	}
	return fmt.Sprintf("%s collected=%d failed=%d", phase, state.collected, state.failed)
}

func (state *PollerActor) requestCollect(ctx actor.Context) {
	counterId := state.counterId
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.CollectRequest{}, state.collectTimeout()+time.Second), func(err error) any {
		return domain.CollectResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
			CounterId:          counterId,
		}
	})
	state.behavior.BecomeStacked(state.WaitingCollectReceive)
}

func (state *PollerActor) collectTimeout() time.Duration {
	return state.config.Poll.CollectTimeout()
}

func (state *PollerActor) scheduleNext(ctx actor.Context) {
	delay, err := state.nextDelay()
	if err != nil {
		state.logger.Error("poller: could not compute next fire time", zap.Error(err))
		panic(err)
	}
	state.scheduler.RequestOnce(delay, ctx.Self(), pollTick{})
}

// nextDelay is the wait until the next tick.
func (state *PollerActor) nextDelay() (time.Duration, error) {
	if state.trigger == nil {
		return time.Duration(state.config.Poll.IntervalMillis) * time.Millisecond, nil
	}
	now := state.now()
	next, err := state.trigger.NextFireTime(now.UnixNano())
	if err != nil {
		return 0, err
	}
	delay := time.Unix(0, next).Sub(now)
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}
