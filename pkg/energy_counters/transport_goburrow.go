package energy_counters

import (
	"encoding/binary"
	"fmt"

	"github.com/goburrow/modbus"
)

// GoburrowTransport is an alternate transport backed by github.com/goburrow/modbus.
type GoburrowTransport struct{}

type goburrowHandle struct {
	client  modbus.Client
	close   func() error
	setUnit func(uint8)
}

func (GoburrowTransport) OpenTCP(cfg TCPConfiguration) (TransportHandle, error) {
	handler := modbus.NewTCPClientHandler(cfg.Address())
	handler.Timeout = cfg.Timeout()
	if err := handler.Connect(); err != nil {
		return nil, err
	}
	return &goburrowHandle{
		client:  modbus.NewClient(handler),
		close:   handler.Close,
		setUnit: func(id uint8) { handler.SlaveId = id },
	}, nil
}

func (GoburrowTransport) OpenRTU(cfg RTUConfiguration) (TransportHandle, error) {
	cfg = cfg.withDefaults()
	handler := modbus.NewRTUClientHandler(cfg.SerialPort)
	handler.BaudRate = int(cfg.BaudRate)
	handler.DataBits = int(cfg.DataBits)
	handler.Parity = cfg.Parity
	handler.StopBits = int(cfg.StopBits)
	handler.Timeout = cfg.Timeout()
	if err := handler.Connect(); err != nil {
		return nil, err
	}
	return &goburrowHandle{
		client:  modbus.NewClient(handler),
		close:   handler.Close,
		setUnit: func(id uint8) { handler.SlaveId = id },
	}, nil
}

func (h *goburrowHandle) ReadRegisters(unitId uint8, address uint16, count uint16, regType RegisterType) ([]uint16, error) {
	h.setUnit(unitId)
	var raw []byte
	var err error
	if regType == InputRegister {
		raw, err = h.client.ReadInputRegisters(address, count)
	} else {
		raw, err = h.client.ReadHoldingRegisters(address, count)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) != int(count)*2 {
		return nil, fmt.Errorf("goburrow: expected %d bytes, got %d", int(count)*2, len(raw))
	}
	words := make([]uint16, count)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
	}
	return words, nil
}

func (h *goburrowHandle) Close() error {
	return h.close()
}

// TransportForDriver maps a driver name to a transport implementation.
func TransportForDriver(driver string) (ModbusTransport, error) {
	switch driver {
	case "", "simonvetter":
		return SimonvetterTransport{}, nil
	case "goburrow":
		return GoburrowTransport{}, nil
	default:
		return nil, fmt.Errorf("energy_counters: unknown modbus driver '%s'", driver)
	}
}
