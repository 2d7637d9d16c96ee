package energy_counters

import (
	"errors"
	"fmt"
	"sync"
)

var errMemoryIllegalAddress = errors.New("memory transport: illegal data address")

// MemoryTransport is an in-memory ModbusTransport backed by a register image per unit.
// Open and read failures can be injected. It is used by tests and by the dry-run mode
// of the service.
type MemoryTransport struct {
	mu        sync.Mutex
	registers map[uint8]map[uint16]uint16
	openErr   map[Protocol]error
	readErr   map[uint16]error
	attempts  []Protocol
	reads     int
	open      int
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		registers: make(map[uint8]map[uint16]uint16),
		openErr:   make(map[Protocol]error),
		readErr:   make(map[uint16]error),
	}
}

// SetRegisters writes words into the image of the given unit starting at address.
func (m *MemoryTransport) SetRegisters(unitId uint8, address uint16, words ...uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.registers[unitId]
	if !ok {
		img = make(map[uint16]uint16)
		m.registers[unitId] = img
	}
	for i, w := range words {
		img[address+uint16(i)] = w
	}
}

// FillRange sets count zero registers starting at address, so the range is readable.
func (m *MemoryTransport) FillRange(unitId uint8, address uint16, count uint16) {
	m.SetRegisters(unitId, address, make([]uint16, count)...)
}

func (m *MemoryTransport) FailOpen(protocol Protocol, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr[protocol] = err
}

// FailRead makes every read starting at address fail with err.
func (m *MemoryTransport) FailRead(address uint16, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr[address] = err
}

func (m *MemoryTransport) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = make(map[Protocol]error)
	m.readErr = make(map[uint16]error)
}

// OpenAttempts returns the protocols tried so far, in order.
func (m *MemoryTransport) OpenAttempts() []Protocol {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Protocol(nil), m.attempts...)
}

func (m *MemoryTransport) ResetAttempts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = nil
}

func (m *MemoryTransport) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// OpenHandles returns the number of handles opened and not yet closed.
func (m *MemoryTransport) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MemoryTransport) OpenTCP(cfg TCPConfiguration) (TransportHandle, error) {
	return m.openHandle(ProtocolTCP)
}

func (m *MemoryTransport) OpenRTU(cfg RTUConfiguration) (TransportHandle, error) {
	return m.openHandle(ProtocolRTU)
}

func (m *MemoryTransport) openHandle(protocol Protocol) (TransportHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, protocol)
	if err := m.openErr[protocol]; err != nil {
		return nil, err
	}
	m.open++
	return &memoryHandle{transport: m}, nil
}

type memoryHandle struct {
	transport *MemoryTransport
	closed    bool
}

func (h *memoryHandle) ReadRegisters(unitId uint8, address uint16, count uint16, regType RegisterType) ([]uint16, error) {
	m := h.transport
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.closed {
		return nil, errors.New("memory transport: handle closed")
	}
	m.reads++
	if err := m.readErr[address]; err != nil {
		return nil, err
	}
	img := m.registers[unitId]
	words := make([]uint16, count)
	for i := range words {
		w, ok := img[address+uint16(i)]
		if !ok {
			return nil, fmt.Errorf("%w: unit %d register %d", errMemoryIllegalAddress, unitId, int(address)+i)
		}
		words[i] = w
	}
	return words, nil
}

func (h *memoryHandle) Close() error {
	m := h.transport
	m.mu.Lock()
	defer m.mu.Unlock()
	if !h.closed {
		h.closed = true
		m.open--
	}
	return nil
}
