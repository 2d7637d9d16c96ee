package energy_counters

import (
	"fmt"

	"github.com/simonvetter/modbus"
)

// SimonvetterTransport is the default transport, backed by github.com/simonvetter/modbus.
type SimonvetterTransport struct{}

type simonvetterHandle struct {
	client *modbus.ModbusClient
	unitId uint8
	unitOk bool
}

func (SimonvetterTransport) OpenTCP(cfg TCPConfiguration) (TransportHandle, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s", cfg.Address()),
		Timeout: cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	if err := client.Open(); err != nil {
		return nil, err
	}
	return &simonvetterHandle{client: client}, nil
}

func (SimonvetterTransport) OpenRTU(cfg RTUConfiguration) (TransportHandle, error) {
	cfg = cfg.withDefaults()
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      fmt.Sprintf("rtu://%s", cfg.SerialPort),
		Speed:    cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   simonvetterParity(cfg.Parity),
		StopBits: cfg.StopBits,
		Timeout:  cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	if err := client.Open(); err != nil {
		return nil, err
	}
	return &simonvetterHandle{client: client}, nil
}

func (h *simonvetterHandle) ReadRegisters(unitId uint8, address uint16, count uint16, regType RegisterType) ([]uint16, error) {
	if !h.unitOk || h.unitId != unitId {
		if err := h.client.SetUnitId(unitId); err != nil {
			return nil, err
		}
		h.unitId = unitId
		h.unitOk = true
	}
	rt := modbus.HOLDING_REGISTER
	if regType == InputRegister {
		rt = modbus.INPUT_REGISTER
	}
	return h.client.ReadRegisters(address, count, rt)
}

func (h *simonvetterHandle) Close() error {
	return h.client.Close()
}

func simonvetterParity(parity string) uint {
	switch parity {
	case "E":
		return modbus.PARITY_EVEN
	case "O":
		return modbus.PARITY_ODD
	default:
		return modbus.PARITY_NONE
	}
}
