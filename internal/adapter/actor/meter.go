package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/core/events"
	"github.com/nemotek/counters2mqtt/internal/util/actorutil"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// MeterActor owns one collector. Modbus work runs as a background task with a
// timeout while the actor stashes everything else.
type MeterActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	collector   *energy_counters.MeterDataCollector
	eventStream *eventstream.EventStream
	timeout     time.Duration
	announced   bool
	logger      *zap.Logger
}

// pending requests kept while a Modbus round trip is in flight
const meterStashLimit = 32

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewMeterActor(collector *energy_counters.MeterDataCollector, es *eventstream.EventStream, timeout time.Duration, logger *zap.Logger) *MeterActor {
	counterId := collector.Counter().CounterId
	act := &MeterActor{
		collector:   collector,
		eventStream: es,
		timeout:     timeout,
		behavior:    actor.NewBehavior(),
		stash:       actorutil.NewStash(meterStashLimit),
		logger:      actorutil.ActorLogger(domain.MeterActorId(counterId), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) counterId() int {
	return state.collector.Counter().CounterId
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		// runs inside the collector, off the actor goroutine
		counterId := state.counterId()
		es := state.eventStream
		state.collector.OnHealthChange(func(ev energy_counters.HealthEvent) {
			es.Publish(events.HealthToUpdateEvent(counterId, ev))
		})
		// connection is opened lazily by the first collect
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.collector.Disconnect()
	default:
		state.logger.Debug("meter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default: ActorHealthRequest")
		// a DOWN meter is reported through State, the actor itself is fine
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.MeterActorId(state.counterId()),
			Healthy: true,
			State:   state.connectionState(),
		})
	case domain.CollectRequest:
		state.logger.Debug("meter@default: CollectRequest")
		sender := actorutil.ReplyTarget(ctx, msg)
		counterId := state.counterId()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, state.collect),
			toTaskResult[domain.CollectResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CollectResponse{
					ActorResponseMixIn: domain.ErrorResponse(err),
					CounterId:          counterId,
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.ReconnectRequest:
		state.logger.Debug("meter@default: ReconnectRequest")
		sender := actorutil.ReplyTarget(ctx, msg)
		counterId := state.counterId()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, state.reconnect),
			toTaskResult[domain.ReconnectResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReconnectResponse{
					ActorResponseMixIn: domain.ErrorResponse(err),
					CounterId:          counterId,
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		state.collector.Disconnect()
	default:
		state.logger.Debug("meter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MeterActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("meter@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if resp, ok := msg.message.(domain.CollectResponse); ok {
			state.publish(resp)
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.collector.Disconnect()
	default:
		state.logger.Debug("meter@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		if dropped := state.stash.Stash(ctx, msg); dropped != nil {
			state.logger.Warn("meter: stash full, dropping oldest message", zap.String("type", fmt.Sprintf("%T", dropped)))
		}
	}
}

// publish pushes a reading to the event stream. Availability is announced once;
// later changes arrive as health transitions.
func (state *MeterActor) publish(resp domain.CollectResponse) {
	if state.eventStream == nil {
		return
	}
	if !state.announced {
		state.announced = true
		state.eventStream.Publish(events.AvailabilityUpdateEvent(state.counterId(), !resp.State.Unhealthy))
	}
	for _, evt := range events.RecordToUpdateEvents(resp.Record) {
		state.eventStream.Publish(evt)
	}
}

func (state *MeterActor) connectionState() string {
	s := state.collector.State()
	switch {
	case s.Unhealthy:
		return "down"
	case s.ActiveTransport != energy_counters.ProtocolNone:
		return string(s.ActiveTransport)
	default:
		return "idle"
	}
}

func (a *MeterActor) collect() *domain.CollectResponse {
	c := a.collector
	resp := &domain.CollectResponse{
		CounterId: a.counterId(),
	}
	if !c.Connected() {
		if err := c.Open(); err != nil {
			resp.ActorResponseMixIn = domain.ErrorResponse(err)
			resp.State = c.State()
			return resp
		}
	}
	record, err := c.Collect()
	if err != nil {
		a.logger.Warn("meter: collect failed", zap.Error(err))
		var readErr *energy_counters.ReadError
		if errors.As(err, &readErr) {
			// reopen on the next cycle, preferred transport first
			c.Disconnect()
		}
		resp.ActorResponseMixIn = domain.ErrorResponse(err)
	}
	resp.Record = record
	resp.State = c.State()
	return resp
}

func (a *MeterActor) reconnect() *domain.ReconnectResponse {
	err := a.collector.Open()
	return &domain.ReconnectResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		CounterId:          a.counterId(),
		State:              a.collector.State(),
	}
}

func toTaskResult[T any](replyTo *actor.PID) func(*T) backgroundTaskResult {
	return func(t *T) backgroundTaskResult {
		return backgroundTaskResult{
			message: *t,
			replyTo: replyTo,
		}
	}
}
