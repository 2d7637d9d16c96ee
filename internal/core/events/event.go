package events

import (
	. "github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"
)

// RecordToUpdateEvents expands a reading into the full JSON event followed by one event per key.
func RecordToUpdateEvents(record *energy_counters.OutputRecord) []any {
	var events []any
	if record == nil {
		return events
	}

	events = append(events, MeterReadingEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_STATE,
		},
		CounterId: record.CounterId,
		Record:    record,
	})
	for _, key := range record.Keys() {
		value, _ := record.Get(key)
		events = append(events, MeterValueUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: key,
			},
			CounterId: record.CounterId,
			Key:       key,
			Value:     value,
		})
	}

	return events
}

func HealthToUpdateEvent(counterId int, health energy_counters.HealthEvent) any {
	return MeterAvailabilityEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_AVAILABILITY,
		},
		CounterId: counterId,
		Available: !health.Down,
		Health:    &health,
	}
}

// AvailabilityUpdateEvent is used when no transition event exists, e.g. at startup.
func AvailabilityUpdateEvent(counterId int, available bool) any {
	return MeterAvailabilityEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_AVAILABILITY,
		},
		CounterId: counterId,
		Available: available,
	}
}

func BridgeOnlineUpdateEvent(online bool) any {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
