package domain

import (
	"fmt"

	"github.com/nemotek/counters2mqtt/pkg/energy_counters"
)

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// MeterValueUpdateEvent is one value of a reading.
type MeterValueUpdateEvent struct {
	SensorUpdateEventMixIn
	CounterId int
	Key       string
	Value     float64
}

// MeterReadingEvent carries a full reading, published as JSON.
type MeterReadingEvent struct {
	SensorUpdateEventMixIn
	CounterId int
	Record    *energy_counters.OutputRecord
}

// MeterAvailabilityEvent is published on DOWN / Restored transitions.
type MeterAvailabilityEvent struct {
	SensorUpdateEventMixIn
	CounterId int
	Available bool
	Health    *energy_counters.HealthEvent
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}
