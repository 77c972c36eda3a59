// Package simerr defines the error classes reported by the simulation kernel.
//
// Every error returned by nsim wraps one of the sentinels below, so callers can
// classify failures with errors.Is and read the message for details.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports topology or timing misconfiguration: a
	// resolution change after nodes exist, values that are not aligned to the
	// simulation grid, invalid model parameters or connection rules.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidDuration reports a run duration that is not a whole number of
	// resolution steps.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrMisalignedSpikeTime reports a spike generator trigger time that does
	// not fall on the simulation grid. It also matches ErrConfiguration.
	ErrMisalignedSpikeTime = errors.New("misaligned spike time")

	// ErrUnknownField reports a read-out of a field the node does not produce.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownParam reports a parameter name the model does not recognize.
	// It also matches ErrConfiguration.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrUnknownModel reports a model name that is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownNode reports a node id that does not exist in the kernel.
	ErrUnknownNode = errors.New("unknown node")

	// ErrStateUnavailable reports access to kernel state while a run is in
	// progress.
	ErrStateUnavailable = errors.New("state unavailable")

	// ErrIntegration reports a numerical fault while advancing a node.
	ErrIntegration = errors.New("integration error")
)

// Configf wraps ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// InvalidDurationf wraps ErrInvalidDuration.
func InvalidDurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDuration, fmt.Sprintf(format, args...))
}

// MisalignedSpikeTimef wraps ErrMisalignedSpikeTime and ErrConfiguration.
func MisalignedSpikeTimef(format string, args ...any) error {
	return fmt.Errorf("%w (%w): %s",
		ErrMisalignedSpikeTime, ErrConfiguration, fmt.Sprintf(format, args...))
}

// UnknownFieldf wraps ErrUnknownField.
func UnknownFieldf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnknownField, fmt.Sprintf(format, args...))
}

// UnknownParamf wraps ErrUnknownParam and ErrConfiguration.
func UnknownParamf(format string, args ...any) error {
	return fmt.Errorf("%w (%w): %s",
		ErrUnknownParam, ErrConfiguration, fmt.Sprintf(format, args...))
}

// UnknownModelf wraps ErrUnknownModel.
func UnknownModelf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnknownModel, fmt.Sprintf(format, args...))
}

// UnknownNodef wraps ErrUnknownNode.
func UnknownNodef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnknownNode, fmt.Sprintf(format, args...))
}

// StateUnavailablef wraps ErrStateUnavailable.
func StateUnavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateUnavailable, fmt.Sprintf(format, args...))
}

// Integrationf wraps ErrIntegration.
func Integrationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegration, fmt.Sprintf(format, args...))
}
