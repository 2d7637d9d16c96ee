package energy_counters

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type CounterDataCollector interface {
	Connect() bool
	CollectData() *OutputRecord
	Disconnect()
}

var _ CounterDataCollector = (*MeterDataCollector)(nil)

// MeterDataCollector reads the register map of one model from one counter.
// It is not safe for concurrent use; each counter needs its own collector.
type MeterDataCollector struct {
	model    *Model
	counter  CounterConfiguration
	selector *TransportSelector
	logger   *zap.Logger
	now      func() time.Time
}

// CreateCollector builds a collector for a counter. Unset Preferred and
// FailureThreshold in conn are taken from the model.
func CreateCollector(model *Model, counter CounterConfiguration, conn ConnectionConfiguration,
	transport ModbusTransport, logger *zap.Logger, instrumentation *ModbusInstrument) (*MeterDataCollector, error) {
	if model == nil {
		return nil, ErrUnknownModel
	}
	if err := counter.Validate(); err != nil {
		return nil, err
	}
	if conn.Preferred == "" {
		conn.Preferred = model.Preferred
	}
	if conn.FailureThreshold == 0 {
		conn.FailureThreshold = model.FailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("model", model.Name), zap.Uint8("unitId", counter.UnitId), zap.Int("counterId", counter.CounterId))

	// instrumentation
	inst := []ModbusInstrument{debugLoggerInstrumentation(logger)}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}
	selector, err := NewTransportSelector(counter, conn, transport, logger, inst...)
	if err != nil {
		return nil, err
	}
	return &MeterDataCollector{
		model:    model,
		counter:  counter,
		selector: selector,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// CreateCollectorForModel looks the model up in the registry.
func CreateCollectorForModel(modelName string, counter CounterConfiguration, conn ConnectionConfiguration,
	transport ModbusTransport, logger *zap.Logger, instrumentation *ModbusInstrument) (*MeterDataCollector, error) {
	model, err := LookupModel(modelName)
	if err != nil {
		return nil, err
	}
	return CreateCollector(model, counter, conn, transport, logger, instrumentation)
}

func (c *MeterDataCollector) Model() *Model {
	return c.model
}

func (c *MeterDataCollector) Counter() CounterConfiguration {
	return c.counter
}

func (c *MeterDataCollector) State() ConnectionState {
	return c.selector.State()
}

func (c *MeterDataCollector) Connected() bool {
	return c.selector.Connected()
}

func (c *MeterDataCollector) OnHealthChange(fn func(HealthEvent)) {
	c.selector.OnHealthChange(fn)
}

// Open connects the collector, preferred transport first.
func (c *MeterDataCollector) Open() error {
	return c.selector.Connect()
}

func (c *MeterDataCollector) Connect() bool {
	return c.Open() == nil
}

// Collect reads every block of the model and returns a complete record.
// Any failed block fails the whole call; no partial record is returned.
func (c *MeterDataCollector) Collect() (*OutputRecord, error) {
	if !c.selector.Connected() {
		return nil, ErrNotConnected
	}
	raw, err := c.selector.ReadBlocks(c.model.Blocks)
	if err != nil {
		return nil, err
	}
	values := make(map[string]float64)
	for i, blk := range c.model.Blocks {
		if err := blk.Decode(raw[i], values); err != nil {
			return nil, err
		}
	}
	keys := c.model.Keys()
	for _, key := range keys {
		if _, ok := values[key]; !ok {
			return nil, fmt.Errorf("%w: '%s'", ErrIncompleteRecord, key)
		}
	}
	return NewOutputRecord(c.counter, c.model.Name, c.now(), values, keys), nil
}

// CollectData is Collect with the error logged. A nil record means no reading this cycle.
func (c *MeterDataCollector) CollectData() *OutputRecord {
	record, err := c.Collect()
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			c.logger.Warn("collect requested while not connected")
		} else {
			c.logger.Error("error collecting data", zap.Error(err))
		}
		return nil
	}
	return record
}

func (c *MeterDataCollector) Disconnect() {
	c.selector.Disconnect()
}
