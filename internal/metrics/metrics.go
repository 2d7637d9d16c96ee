package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nemotek/counters2mqtt/internal/core/domain"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "counters"

// Metrics holds the prometheus collectors of the service on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	readDuration *prometheus.HistogramVec
	readFailures *prometheus.CounterVec
	meterUp      *prometheus.GaugeVec
	meterValue   *prometheus.GaugeVec
	lastReading  *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_read_duration_seconds",
			Help:      "Duration of one register block read",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4},
		}, []string{"counter_id", "block", "protocol"}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_read_failures_total",
			Help:      "Failed register block reads",
		}, []string{"counter_id", "block", "protocol"}),
		meterUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meter_up",
			Help:      "1 while the meter communication channel is healthy",
		}, []string{"counter_id"}),
		meterValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meter_value",
			Help:      "Last collected value of a meter field",
		}, []string{"counter_id", "key"}),
		lastReading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meter_last_reading_timestamp_seconds",
			Help:      "Unix time of the last complete reading",
		}, []string{"counter_id"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.readDuration,
		m.readFailures,
		m.meterUp,
		m.meterValue,
		m.lastReading,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument returns the read hook of one counter's collector.
func (m *Metrics) Instrument(counterId int) *energy_counters.ModbusInstrument {
	id := strconv.Itoa(counterId)
	return &energy_counters.ModbusInstrument{
		RecordRead: func(block string, protocol energy_counters.Protocol, readTime time.Duration, err error) {
			m.readDuration.WithLabelValues(id, block, string(protocol)).Observe(readTime.Seconds())
			if err != nil {
				m.readFailures.WithLabelValues(id, block, string(protocol)).Inc()
			}
		},
	}
}

func (m *Metrics) ObserveRecord(record *energy_counters.OutputRecord) {
	if record == nil {
		return
	}
	id := strconv.Itoa(record.CounterId)
	for _, key := range record.Keys() {
		value, _ := record.Get(key)
		m.meterValue.WithLabelValues(id, key).Set(value)
	}
	m.lastReading.WithLabelValues(id).Set(float64(record.Timestamp.Unix()))
}

func (m *Metrics) ObserveAvailability(counterId int, available bool) {
	value := 0.0
	if available {
		value = 1
	}
	m.meterUp.WithLabelValues(strconv.Itoa(counterId)).Set(value)
}

// Subscribe feeds readings and availability changes published on es.
func (m *Metrics) Subscribe(es *eventstream.EventStream) *eventstream.Subscription {
	return es.Subscribe(func(evt any) {
		switch e := evt.(type) {
		case domain.MeterReadingEvent:
			m.ObserveRecord(e.Record)
		case domain.MeterAvailabilityEvent:
			m.ObserveAvailability(e.CounterId, e.Available)
		}
	})
}
