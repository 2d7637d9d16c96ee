package energy_counters

import (
	"fmt"
	"time"
)

const (
	DefaultTCPPort          = 502
	DefaultTCPTimeout       = 4.0
	DefaultRTUBaudRate      = 9600
	DefaultRTUDataBits      = 8
	DefaultRTUParity        = "N"
	DefaultRTUStopBits      = 1
	DefaultRTUTimeout       = 2.0
	DefaultFailureThreshold = 3
)

// CounterConfiguration identifies the physical device. UnitId is the Modbus slave address.
type CounterConfiguration struct {
	CounterId   int
	UnitId      uint8
	CounterName string
	CompanyId   string
}

func (c CounterConfiguration) Validate() error {
	if c.UnitId < 1 || c.UnitId > 247 {
		return fmt.Errorf("energy_counters: unit id %d outside 1..247", c.UnitId)
	}
	return nil
}

type TCPConfiguration struct {
	Host           string
	Port           uint
	TimeoutSeconds float64
}

// NewTCPConfiguration returns a TCP configuration with the default port and timeout.
func NewTCPConfiguration(host string) TCPConfiguration {
	return TCPConfiguration{
		Host:           host,
		Port:           DefaultTCPPort,
		TimeoutSeconds: DefaultTCPTimeout,
	}
}

func (c TCPConfiguration) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultTCPPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c TCPConfiguration) Timeout() time.Duration {
	return secondsOr(c.TimeoutSeconds, DefaultTCPTimeout)
}

type RTUConfiguration struct {
	SerialPort     string
	BaudRate       uint
	DataBits       uint
	Parity         string // N, E or O
	StopBits       uint
	TimeoutSeconds float64
}

// NewRTUConfiguration returns an RTU configuration for 8N1 framing with the default timeout.
func NewRTUConfiguration(serialPort string, baudRate uint) RTUConfiguration {
	return RTUConfiguration{
		SerialPort:     serialPort,
		BaudRate:       baudRate,
		DataBits:       DefaultRTUDataBits,
		Parity:         DefaultRTUParity,
		StopBits:       DefaultRTUStopBits,
		TimeoutSeconds: DefaultRTUTimeout,
	}
}

func (c RTUConfiguration) Timeout() time.Duration {
	return secondsOr(c.TimeoutSeconds, DefaultRTUTimeout)
}

func (c RTUConfiguration) withDefaults() RTUConfiguration {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultRTUBaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = DefaultRTUDataBits
	}
	if c.Parity == "" {
		c.Parity = DefaultRTUParity
	}
	if c.StopBits == 0 {
		c.StopBits = DefaultRTUStopBits
	}
	return c
}

// ConnectionConfiguration holds one or both transports of a collector.
// Preferred and FailureThreshold fall back to the model defaults when unset.
type ConnectionConfiguration struct {
	TCP              *TCPConfiguration
	RTU              *RTUConfiguration
	Preferred        Protocol
	FailureThreshold int
}

func (c ConnectionConfiguration) Validate() error {
	if c.TCP == nil && c.RTU == nil {
		return ErrNoConnectionConfig
	}
	if c.TCP != nil && c.TCP.Host == "" {
		return fmt.Errorf("energy_counters: tcp configuration without host")
	}
	if c.RTU != nil && c.RTU.SerialPort == "" {
		return fmt.Errorf("energy_counters: rtu configuration without serial port")
	}
	switch c.Preferred {
	case "", ProtocolTCP, ProtocolRTU:
	default:
		return fmt.Errorf("energy_counters: unknown preferred protocol '%s'", c.Preferred)
	}
	if c.FailureThreshold < 0 {
		return fmt.Errorf("energy_counters: negative failure threshold %d", c.FailureThreshold)
	}
	return nil
}

func secondsOr(seconds float64, def float64) time.Duration {
	if seconds <= 0 {
		seconds = def
	}
	return time.Duration(seconds * float64(time.Second))
}
