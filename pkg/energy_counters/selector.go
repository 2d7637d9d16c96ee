package energy_counters

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ConnectionState is owned by a TransportSelector.
type ConnectionState struct {
	ActiveTransport     Protocol
	ConsecutiveFailures int
	FailureThreshold    int
	Unhealthy           bool
}

// HealthEvent is emitted when a channel goes down or is restored.
type HealthEvent struct {
	CounterId   int
	CounterName string
	CompanyId   string
	Host        string
	Down        bool
	Timestamp   time.Time
	Topic       string
	Message     string
}

// TransportSelector opens the preferred transport of a counter, falls back to the
// alternate one once per Connect, and tracks consecutive failures.
// Calls are serialized; a read that outlives its caller's timeout still holds the channel.
type TransportSelector struct {
	mu             sync.Mutex
	counter        CounterConfiguration
	conn           ConnectionConfiguration
	transport      ModbusTransport
	handle         TransportHandle
	state          ConnectionState
	logger         *zap.Logger
	instrument     []ModbusInstrument
	onHealthChange func(HealthEvent)
	now            func() time.Time
}

func NewTransportSelector(counter CounterConfiguration, conn ConnectionConfiguration, transport ModbusTransport,
	logger *zap.Logger, instrument ...ModbusInstrument) (*TransportSelector, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New("energy_counters: nil transport")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := conn.FailureThreshold
	if threshold == 0 {
		threshold = DefaultFailureThreshold
	}
	return &TransportSelector{
		counter:    counter,
		conn:       conn,
		transport:  transport,
		logger:     logger,
		instrument: instrument,
		now:        time.Now,
		state: ConnectionState{
			ActiveTransport:  ProtocolNone,
			FailureThreshold: threshold,
		},
	}, nil
}

// OnHealthChange registers a callback for DOWN / Restored transitions.
// fn runs with the selector locked and must not call back into it.
func (s *TransportSelector) OnHealthChange(fn func(HealthEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHealthChange = fn
}

func (s *TransportSelector) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *TransportSelector) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// protocolOrder lists the configured transports, preferred first.
func (s *TransportSelector) protocolOrder() []Protocol {
	preferred := s.conn.Preferred
	if preferred == "" {
		preferred = ProtocolTCP
	}
	var order []Protocol
	for _, p := range []Protocol{preferred, otherProtocol(preferred)} {
		if (p == ProtocolTCP && s.conn.TCP != nil) || (p == ProtocolRTU && s.conn.RTU != nil) {
			order = append(order, p)
		}
	}
	return order
}

func otherProtocol(p Protocol) Protocol {
	if p == ProtocolTCP {
		return ProtocolRTU
	}
	return ProtocolTCP
}

// Connect releases any open handle and then tries every configured transport once,
// preferred first. A failed Connect counts as one failure.
func (s *TransportSelector) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
	var errs []error
	for _, p := range s.protocolOrder() {
		handle, err := s.open(p)
		if err != nil {
			s.logger.Error("modbus: connect failed", zap.String("protocol", string(p)), zap.String("target", s.target(p)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		s.handle = handle
		s.state.ActiveTransport = p
		s.logger.Info("modbus: connected", zap.String("protocol", string(p)), zap.String("target", s.target(p)))
		return nil
	}
	s.recordFailure()
	return fmt.Errorf("%w: %w", ErrConnectionFailed, errors.Join(errs...))
}

func (s *TransportSelector) open(p Protocol) (TransportHandle, error) {
	if p == ProtocolTCP {
		return s.transport.OpenTCP(*s.conn.TCP)
	}
	return s.transport.OpenRTU(*s.conn.RTU)
}

// ReadBlock reads the raw words of blk from the active transport. It never switches
// transport; that only happens on the next Connect.
func (s *TransportSelector) ReadBlock(blk *RegisterBlockSpec) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, ErrNotConnected
	}
	words, err := s.read(blk)
	if err != nil {
		s.recordFailure()
		return nil, err
	}
	s.recordSuccess()
	return words, nil
}

// ReadBlocks reads every block in order and stops at the first failure.
// The whole batch counts as a single success or failure.
func (s *TransportSelector) ReadBlocks(blocks []*RegisterBlockSpec) ([][]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, ErrNotConnected
	}
	out := make([][]uint16, 0, len(blocks))
	for _, blk := range blocks {
		words, err := s.read(blk)
		if err != nil {
			s.recordFailure()
			return nil, err
		}
		out = append(out, words)
	}
	s.recordSuccess()
	return out, nil
}

func (s *TransportSelector) read(blk *RegisterBlockSpec) ([]uint16, error) {
	done := recordRead(s.instrument, blk.Name, s.state.ActiveTransport)
	words, err := s.handle.ReadRegisters(s.counter.UnitId, blk.StartAddress, blk.RegisterCount, blk.RegisterType)
	if err == nil && len(words) != int(blk.RegisterCount) {
		err = fmt.Errorf("short response: expected %d registers, got %d", blk.RegisterCount, len(words))
	}
	done(err)
	if err != nil {
		s.logger.Error("modbus: read failed",
			zap.String("block", blk.Name),
			zap.Uint16("start", blk.StartAddress),
			zap.Uint16("end", blk.EndAddress()),
			zap.Error(err))
		return nil, &ReadError{
			Block:    blk.Name,
			Start:    blk.StartAddress,
			Count:    blk.RegisterCount,
			Protocol: s.state.ActiveTransport,
			Err:      err,
		}
	}
	return words, nil
}

// Disconnect releases the active handle. Failure counters survive.
func (s *TransportSelector) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
}

func (s *TransportSelector) disconnect() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("modbus: error closing transport", zap.Error(err))
	}
	s.handle = nil
	s.state.ActiveTransport = ProtocolNone
}

func (s *TransportSelector) recordFailure() {
	s.state.ConsecutiveFailures++
	if !s.state.Unhealthy && s.state.ConsecutiveFailures >= s.state.FailureThreshold {
		s.state.Unhealthy = true
		s.emitHealth(true)
	}
}

func (s *TransportSelector) recordSuccess() {
	s.state.ConsecutiveFailures = 0
	if s.state.Unhealthy {
		s.state.Unhealthy = false
		s.emitHealth(false)
	}
}

func (s *TransportSelector) emitHealth(down bool) {
	ts := s.now()
	host := s.host()
	ev := HealthEvent{
		CounterId:   s.counter.CounterId,
		CounterName: s.counter.CounterName,
		CompanyId:   s.counter.CompanyId,
		Host:        host,
		Down:        down,
		Timestamp:   ts,
	}
	stamp := ts.Format(time.RFC3339)
	if down {
		ev.Topic = fmt.Sprintf("%s Comm Error %s DOWN", s.counter.CompanyId, s.counter.CounterName)
		ev.Message = fmt.Sprintf("%s (ip:%s) communication with the counter %s is DOWN since %s", s.counter.CompanyId, host, s.counter.CounterName, stamp)
		s.logger.Warn(ev.Message, zap.Int("consecutiveFailures", s.state.ConsecutiveFailures))
	} else {
		ev.Topic = fmt.Sprintf("%s Comm Error %s Restored", s.counter.CompanyId, s.counter.CounterName)
		ev.Message = fmt.Sprintf("%s (ip:%s) communication with the counter %s has restored at %s", s.counter.CompanyId, host, s.counter.CounterName, stamp)
		s.logger.Info(ev.Message)
	}
	if s.onHealthChange != nil {
		s.onHealthChange(ev)
	}
}

func (s *TransportSelector) host() string {
	if s.state.ActiveTransport != ProtocolNone {
		return s.target(s.state.ActiveTransport)
	}
	order := s.protocolOrder()
	if len(order) == 0 {
		return "unknown"
	}
	return s.target(order[0])
}

func (s *TransportSelector) target(p Protocol) string {
	if p == ProtocolTCP && s.conn.TCP != nil {
		return s.conn.TCP.Host
	}
	if p == ProtocolRTU && s.conn.RTU != nil {
		return s.conn.RTU.SerialPort
	}
	return "unknown"
}
