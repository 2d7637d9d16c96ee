package actor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	adactor "github.com/nemotek/counters2mqtt/internal/adapter/actor"
	"github.com/nemotek/counters2mqtt/internal/config"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/mqtt"
	. "github.com/nemotek/counters2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type MeterActorProvider func(counterId int, es *eventstream.EventStream) *adactor.MeterActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	subscription       *eventstream.Subscription
	mqttActor          *actor.PID
	meterActors        map[int]*actor.PID
	pollerActors       map[int]*actor.PID
	readings           map[int]*domain.MeterReading
	meterActorProvider MeterActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	expected       int
	checksReceived int
	unhealthy      []string
	states         []string
	respondTo      *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, es *eventstream.EventStream, meterActorProvider MeterActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        es,
		meterActors:        make(map[int]*actor.PID),
		pollerActors:       make(map[int]*actor.PID),
		readings:           make(map[int]*domain.MeterReading),
		meterActorProvider: meterActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	if act.eventStream == nil {
		act.eventStream = eventstream.NewEventStream()
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.subscribeEventStream(ctx)

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// one meter and one poller per configured counter
		for _, m := range state.config.Meters {
			meterPID, err := state.startMeterActor(ctx, m.CounterId)
			if err != nil {
				panic(err)
			}
			state.meterActors[m.CounterId] = meterPID

			pollerPID, err := state.startPollerActor(ctx, m.CounterId, meterPID)
			if err != nil {
				panic(err)
			}
			state.pollerActors[m.CounterId] = pollerPID

			state.readings[m.CounterId] = &domain.MeterReading{
				CounterId:   m.CounterId,
				CounterName: m.CounterName,
				Model:       m.Model,
			}
		}

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(1 + len(state.meterActors) + len(state.pollerActors))
		state.currentHealthCheck.respondTo = ReplyTarget(ctx, msg)
		state.requestHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		for _, id := range state.counterIds() {
			state.requestHealth(ctx, state.meterActors[id], domain.MeterActorId(id))
			state.requestHealth(ctx, state.pollerActors[id], domain.PollerActorId(id))
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetReadingsRequest:
		state.logger.Debug("master@default GetReadingsRequest", zap.Int("counterId", msg.CounterId))
		Reply(ctx, msg, state.getReadings(msg.CounterId))
	case domain.MeterReadingEvent:
		if r, ok := state.readings[msg.CounterId]; ok {
			r.Record = msg.Record
			r.Available = true
		}
	case domain.MeterAvailabilityEvent:
		if r, ok := state.readings[msg.CounterId]; ok {
			r.Available = msg.Available
		}
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			state.routeCommand(ctx, *msg.Command)
		}
	case *actor.Terminated:
		// a meter that keeps failing after its restarts takes the service down
		if strings.HasPrefix(msg.Who.Id, fmt.Sprintf("%s/%s_", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_METER)) {
			state.logger.Error("master@default meter actor terminated", zap.String("who", msg.Who.Id))
			panic(errors.New("meter terminated"))
		}
	case *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
			state.subscription = nil
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.add(msg)
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, pid *actor.PID, id string) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
		return domain.ActorHealthResponse{
			ActorResponseMixIn: domain.ErrorResponse(err),
			Id:                 id,
			Healthy:            false,
		}
	})
}

// subscribeEventStream keeps the latest reading and availability of every meter.
func (state *MasterOfPuppetsActor) subscribeEventStream(ctx actor.Context) {
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	state.subscription = state.eventStream.Subscribe(func(evt any) {
		switch evt.(type) {
		case domain.MeterReadingEvent, domain.MeterAvailabilityEvent:
			root.Send(self, evt)
		}
	})
}

func (state *MasterOfPuppetsActor) routeCommand(ctx actor.Context, parsed mqtt.ParsedMQTTCommand) {
	cmd, err := ParsedMQTTCommandToCommand(parsed)
	if err != nil {
		state.logger.Warn("master@default invalid command", zap.Int("counterId", parsed.CounterId), zap.Error(err))
		return
	}
	switch pcmd := cmd.(type) {
	case domain.PollNowRequest:
		if pid, ok := state.pollerActors[parsed.CounterId]; ok {
			ctx.Send(pid, pcmd)
			return
		}
	case domain.ReconnectRequest:
		if pid, ok := state.meterActors[parsed.CounterId]; ok {
			ctx.Send(pid, pcmd)
			return
		}
	}
	state.logger.Warn("master@default command for unknown meter", zap.Int("counterId", parsed.CounterId))
}

func (state *MasterOfPuppetsActor) getReadings(counterId int) domain.GetReadingsResponse {
	if counterId != 0 {
		r, ok := state.readings[counterId]
		if !ok {
			return domain.GetReadingsResponse{
				ActorResponseMixIn: domain.ErrorResponse(fmt.Errorf("%w: %d", domain.ErrUnknownMeter, counterId)),
			}
		}
		return domain.GetReadingsResponse{Readings: []domain.MeterReading{*r}}
	}
	var readings []domain.MeterReading
	for _, id := range state.counterIds() {
		readings = append(readings, *state.readings[id])
	}
	return domain.GetReadingsResponse{Readings: readings}
}

func (state *MasterOfPuppetsActor) counterIds() []int {
	ids := make([]int, 0, len(state.meterActors))
	for id := range state.meterActors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (state *MasterOfPuppetsActor) startMeterActor(ctx actor.Context, counterId int) (*actor.PID, error) {

	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return state.meterActorProvider(counterId, state.eventStream)
	})
	return ctx.SpawnNamed(meterProps, domain.MeterActorId(counterId))
}

func (state *MasterOfPuppetsActor) startPollerActor(ctx actor.Context, counterId int, meterActor *actor.PID) (*actor.PID, error) {

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, counterId, meterActor, state.logger)
	})
	return ctx.SpawnNamed(pollerProps, domain.PollerActorId(counterId))
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	})
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	})
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

// Supervisor restarts failing children with a growing backoff. It goes on the master's props.
func Supervisor() actor.SupervisorStrategy {
	return actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
}

func (state *healthCheckResult) reset(expected int) {
	state.expected = expected
	state.checksReceived = 0
	state.unhealthy = nil
	state.states = nil
	state.respondTo = nil
}

func (state *healthCheckResult) add(resp domain.ActorHealthResponse) {
	state.checksReceived++
	if !resp.Healthy {
		state.unhealthy = append(state.unhealthy, resp.Id)
	}
	if resp.State != "" {
		state.states = append(state.states, fmt.Sprintf("%s=%s", resp.Id, resp.State))
	}
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	return state.allReceived() && len(state.unhealthy) == 0
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   strings.Join(state.states, " "),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
