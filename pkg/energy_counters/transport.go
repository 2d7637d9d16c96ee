package energy_counters

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Protocol string

const (
	ProtocolNone Protocol = "none"
	ProtocolTCP  Protocol = "tcp"
	ProtocolRTU  Protocol = "rtu"
)

// ModbusTransport opens Modbus channels. Framing, CRC and transaction ids
// belong to the implementation.
type ModbusTransport interface {
	OpenTCP(cfg TCPConfiguration) (TransportHandle, error)
	OpenRTU(cfg RTUConfiguration) (TransportHandle, error)
}

// TransportHandle is an open channel. It is not safe for concurrent use.
type TransportHandle interface {
	ReadRegisters(unitId uint8, address uint16, count uint16, regType RegisterType) ([]uint16, error)
	Close() error
}

type ModbusInstrument struct {
	RecordRead func(block string, protocol Protocol, readTime time.Duration, err error)
}

func debugLoggerInstrumentation(logger *zap.Logger) ModbusInstrument {
	return ModbusInstrument{
		RecordRead: func(block string, protocol Protocol, readTime time.Duration, err error) {
			logger.Debug(fmt.Sprintf("modbus [%s over %s]: %d millis", block, protocol, readTime.Milliseconds()), zap.Error(err))
		},
	}
}

func recordRead(instrument []ModbusInstrument, block string, protocol Protocol) func(err error) {
	if len(instrument) == 0 {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		duration := time.Since(start)
		for i := range instrument {
			if instrument[i].RecordRead != nil {
				instrument[i].RecordRead(block, protocol, duration, err)
			}
		}
	}
}
