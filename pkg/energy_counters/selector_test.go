package energy_counters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTimeout = errors.New("i/o timeout")

func testCounter() CounterConfiguration {
	return CounterConfiguration{CounterId: 115, UnitId: 81, CounterName: "Geral #115", CompanyId: "ACME"}
}

func bothTransports(preferred Protocol, threshold int) ConnectionConfiguration {
	tcp := NewTCPConfiguration("172.16.5.11")
	rtu := NewRTUConfiguration("/dev/ttyUSB0", 9600)
	return ConnectionConfiguration{TCP: &tcp, RTU: &rtu, Preferred: preferred, FailureThreshold: threshold}
}

func TestSelectorFailureThreshold(t *testing.T) {

	require := require.New(t)

	mem := NewMemoryTransport()
	blk := MustRegisterBlockSpec("voltage", 4098, 2, Uint32(0, 0.001, "vl1"))
	mem.SetRegisters(81, 4098, EncodeUint32BE(230000)...)

	sel, err := NewTransportSelector(testCounter(), bothTransports(ProtocolTCP, 6), mem, nil)
	require.NoError(err)

	var events []HealthEvent
	sel.OnHealthChange(func(ev HealthEvent) { events = append(events, ev) })

	require.NoError(sel.Connect())
	require.Equal(ProtocolTCP, sel.State().ActiveTransport)

	mem.FailRead(4098, errTimeout)
	for i := 1; i <= 5; i++ {
		_, err := sel.ReadBlock(blk)
		require.ErrorIs(err, errTimeout)
		st := sel.State()
		require.Equal(i, st.ConsecutiveFailures)
		require.False(st.Unhealthy)
		require.Equal(ProtocolTCP, st.ActiveTransport)
	}
	require.Empty(events)

	_, err = sel.ReadBlock(blk)
	var readErr *ReadError
	require.ErrorAs(err, &readErr)
	require.Equal(uint16(4098), readErr.Start)
	require.Equal(ProtocolTCP, readErr.Protocol)
	st := sel.State()
	require.Equal(6, st.ConsecutiveFailures)
	require.True(st.Unhealthy)
	// no switch in the middle of a read cycle
	require.Equal(ProtocolTCP, st.ActiveTransport)
	require.Len(events, 1)
	require.True(events[0].Down)
	require.Equal("ACME Comm Error Geral #115 DOWN", events[0].Topic)
	require.Contains(events[0].Message, "ip:172.16.5.11")

	// the next connect retries the preferred transport first
	mem.ResetAttempts()
	mem.ClearFailures()
	require.NoError(sel.Connect())
	require.Equal([]Protocol{ProtocolTCP}, mem.OpenAttempts())

	words, err := sel.ReadBlock(blk)
	require.NoError(err)
	require.Equal(EncodeUint32BE(230000), words)
	st = sel.State()
	require.Equal(0, st.ConsecutiveFailures)
	require.False(st.Unhealthy)
	require.Len(events, 2)
	require.False(events[1].Down)
	require.Equal("ACME Comm Error Geral #115 Restored", events[1].Topic)
}

func TestSelectorFallback(t *testing.T) {

	assert := assert.New(t)

	mem := NewMemoryTransport()
	mem.FailOpen(ProtocolTCP, errors.New("connection refused"))

	sel, err := NewTransportSelector(testCounter(), bothTransports(ProtocolTCP, 6), mem, nil)
	assert.NoError(err)
	assert.NoError(sel.Connect())
	assert.Equal([]Protocol{ProtocolTCP, ProtocolRTU}, mem.OpenAttempts())
	assert.Equal(ProtocolRTU, sel.State().ActiveTransport)
	assert.Equal(0, sel.State().ConsecutiveFailures)

	// every fresh connect goes back to the preferred transport
	mem.ResetAttempts()
	mem.ClearFailures()
	assert.NoError(sel.Connect())
	assert.Equal([]Protocol{ProtocolTCP}, mem.OpenAttempts())
	assert.Equal(ProtocolTCP, sel.State().ActiveTransport)
	assert.Equal(1, mem.OpenHandles())
}

func TestSelectorPreferredRTU(t *testing.T) {

	assert := assert.New(t)

	mem := NewMemoryTransport()
	sel, err := NewTransportSelector(testCounter(), bothTransports(ProtocolRTU, 5), mem, nil)
	assert.NoError(err)
	assert.NoError(sel.Connect())
	assert.Equal([]Protocol{ProtocolRTU}, mem.OpenAttempts())
	assert.Equal(ProtocolRTU, sel.State().ActiveTransport)
}

func TestSelectorConnectFailure(t *testing.T) {

	assert := assert.New(t)

	mem := NewMemoryTransport()
	mem.FailOpen(ProtocolTCP, errors.New("connection refused"))
	mem.FailOpen(ProtocolRTU, errors.New("no such device"))

	sel, err := NewTransportSelector(testCounter(), bothTransports(ProtocolTCP, 2), mem, nil)
	assert.NoError(err)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sel.now = func() time.Time { return now }
	var events []HealthEvent
	sel.OnHealthChange(func(ev HealthEvent) { events = append(events, ev) })

	err = sel.Connect()
	assert.ErrorIs(err, ErrConnectionFailed)
	assert.Equal(ProtocolNone, sel.State().ActiveTransport)
	assert.Equal(1, sel.State().ConsecutiveFailures)

	assert.Error(sel.Connect())
	assert.True(sel.State().Unhealthy)
	assert.Len(events, 1)
	assert.Equal(now, events[0].Timestamp)
	assert.Contains(events[0].Message, "2024-05-01T10:00:00Z")

	_, err = sel.ReadBlock(MustRegisterBlockSpec("x", 0, 1, Uint16(0, 1, "x")))
	assert.ErrorIs(err, ErrNotConnected)
	assert.Equal(2, sel.State().ConsecutiveFailures)
}

func TestSelectorDisconnectIdempotent(t *testing.T) {

	assert := assert.New(t)

	mem := NewMemoryTransport()
	tcp := NewTCPConfiguration("10.0.0.1")
	sel, err := NewTransportSelector(testCounter(), ConnectionConfiguration{TCP: &tcp}, mem, nil)
	assert.NoError(err)

	sel.Disconnect()
	assert.NoError(sel.Connect())
	assert.Equal(1, mem.OpenHandles())
	sel.Disconnect()
	sel.Disconnect()
	assert.Equal(0, mem.OpenHandles())
	assert.Equal(ProtocolNone, sel.State().ActiveTransport)
	assert.Equal(DefaultFailureThreshold, sel.State().FailureThreshold)
}

func TestSelectorRequiresTransportConfig(t *testing.T) {

	_, err := NewTransportSelector(testCounter(), ConnectionConfiguration{}, NewMemoryTransport(), nil)
	assert.ErrorIs(t, err, ErrNoConnectionConfig)
}

func TestSelectorShortResponse(t *testing.T) {

	assert := assert.New(t)

	tcp := NewTCPConfiguration("10.0.0.1")
	sel, err := NewTransportSelector(testCounter(), ConnectionConfiguration{TCP: &tcp}, shortTransport{}, nil)
	assert.NoError(err)
	assert.NoError(sel.Connect())
	_, err = sel.ReadBlock(MustRegisterBlockSpec("x", 0, 4, Uint16(0, 1, "x")))
	assert.Error(err)
	assert.Equal(1, sel.State().ConsecutiveFailures)
}

type shortTransport struct{}

func (shortTransport) OpenTCP(TCPConfiguration) (TransportHandle, error) {
	return shortTransport{}, nil
}

func (shortTransport) OpenRTU(RTUConfiguration) (TransportHandle, error) {
	return shortTransport{}, nil
}

func (shortTransport) ReadRegisters(uint8, uint16, uint16, RegisterType) ([]uint16, error) {
	return []uint16{1}, nil
}

func (shortTransport) Close() error { return nil }
