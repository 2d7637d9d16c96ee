package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/nemotek/counters2mqtt/internal/config"
	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/internal/core/events"
	"github.com/nemotek/counters2mqtt/internal/util/actorutil"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor announces the bridge and every configured meter once MQTT is up.
type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	stash     *actorutil.Stash
	mqttActor *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// the MQTT actor answers once connected and subscribed
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 15*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
				Id:                 domain.ACTOR_ID_MQTT,
				Healthy:            false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT Actor is not healthy"))
		}
		sensors, err := DiscoverySensors(state.config)
		if err != nil {
			panic(err)
		}
		state.logger.Info("hadiscovery: publishing sensors", zap.Int("count", len(sensors)))
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
		})
		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

// DiscoverySensors lists the bridge sensors followed by the sensors of every configured meter.
func DiscoverySensors(cfg *config.Config) ([]domain.GenericSensor, error) {
	var sensors []domain.GenericSensor

	bridgeDevice := events.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	for _, m := range cfg.Meters {
		model, err := energy_counters.LookupModel(m.Model)
		if err != nil {
			return nil, err
		}
		meterDevice := events.MeterDevice(model, m.Counter())
		meterDevice.ViaDevice = bridgeDevice.Id
		sensors = append(sensors, events.MeterSensors(meterDevice, m.CounterId, model.Keys())...)
	}
	return sensors, nil
}
