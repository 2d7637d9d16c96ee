package domain

import (
	"errors"
	"fmt"

	"github.com/nemotek/counters2mqtt/pkg/energy_counters"
)

var ErrUnknownMeter = errors.New("unknown meter")

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_METER        = "meter"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

func MeterActorId(counterId int) string {
	return fmt.Sprintf("%s_%d", ACTOR_ID_METER, counterId)
}

func PollerActorId(counterId int) string {
	return fmt.Sprintf("%s_%d", ACTOR_ID_POLLER, counterId)
}

// Meter

type CollectRequest struct {
	ActorRequestMixIn
}

type CollectResponse struct {
	ActorResponseMixIn
	CounterId int
	Record    *energy_counters.OutputRecord
	State     energy_counters.ConnectionState
}

type ReconnectRequest struct {
	ActorRequestMixIn
}

type ReconnectResponse struct {
	ActorResponseMixIn
	CounterId int
	State     energy_counters.ConnectionState
}

// Poller

type PollNowRequest struct {
	ActorRequestMixIn
}

// Master

type GetReadingsRequest struct {
	ActorRequestMixIn
	// zero means every meter
	CounterId int
}

type GetReadingsResponse struct {
	ActorResponseMixIn
	Readings []MeterReading
}

type MeterReading struct {
	CounterId   int
	CounterName string
	Model       string
	Available   bool
	Record      *energy_counters.OutputRecord
}

// MQTT

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}
