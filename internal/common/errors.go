package common

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyProcessed      = errors.New("already processed")
	ErrValueOutOfBounds      = errors.New("value out of bounds")
	ErrMalformedMessage      = errors.New("malformed message")
	ErrNotDeferred           = errors.New("not deferred")
	ErrConfigurationInvalid  = errors.New("configuration invalid")
	ErrValueBelowToll        = errors.New("value below toll")
	ErrInsufficientAuthority = errors.New("insufficient authority")
	ErrSettlementFailed      = errors.New("settlement failed")
)

// Refinements of ErrValueOutOfBounds. errors.Is matches both the refinement
// and ErrValueOutOfBounds.
var (
	ErrBelowMinimum       = fmt.Errorf("below minimum per transaction: %w", ErrValueOutOfBounds)
	ErrAboveMaxPerTx      = fmt.Errorf("above maximum per transaction: %w", ErrValueOutOfBounds)
	ErrDailyLimitExceeded = fmt.Errorf("daily limit exceeded: %w", ErrValueOutOfBounds)
)

// Code classifies err by the most specific sentinel it wraps. It returns
// "ok" for nil and "internal" for errors outside the taxonomy.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrAboveMaxPerTx):
		return "above_max_per_tx"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, ErrValueOutOfBounds):
		return "value_out_of_bounds"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed_message"
	case errors.Is(err, ErrNotDeferred):
		return "not_deferred"
	case errors.Is(err, ErrConfigurationInvalid):
		return "configuration_invalid"
	case errors.Is(err, ErrValueBelowToll):
		return "value_below_toll"
	case errors.Is(err, ErrSettlementFailed):
		return "settlement_failed"
	case errors.Is(err, ErrInsufficientAuthority):
		return "insufficient_authority"
	default:
		return "internal"
	}
}
