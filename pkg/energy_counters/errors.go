package energy_counters

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected       = errors.New("energy_counters: not connected")
	ErrConnectionFailed   = errors.New("energy_counters: could not connect over any configured transport")
	ErrNoConnectionConfig = errors.New("energy_counters: at least one of tcp or rtu configuration is required")
	ErrSpecViolation      = errors.New("energy_counters: register map violation")
	ErrUnknownModel       = errors.New("energy_counters: unknown model")
	ErrIncompleteRecord   = errors.New("energy_counters: record is missing fields")
)

// ReadError is returned when a register block could not be read.
type ReadError struct {
	Block    string
	Start    uint16
	Count    uint16
	Protocol Protocol
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read block '%s' (%d-%d over %s): %v", e.Block, e.Start, int(e.Start)+int(e.Count)-1, e.Protocol, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func specViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSpecViolation, fmt.Sprintf(format, args...))
}
