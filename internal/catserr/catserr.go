// Package catserr defines the sentinel error kinds shared across the
// scheduling engine, per the error handling design: recoverable kinds
// prune and continue, fatal kinds abort the search with a diagnostic.
package catserr

import "errors"

var (
	// ErrMalformedInput marks a CSV/YAML parse or schema mismatch in
	// peripheral I/O. Always fatal, always surfaced before the engine runs.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInsufficientSamples marks a missing dry-run row for a
	// (step, resource) or (step, producer, consumer) triple. Recoverable:
	// the search treats the pair as unavailable.
	ErrInsufficientSamples = errors.New("insufficient dry-run samples")

	// ErrReservationConflict marks a timeline mutation that would violate
	// I1. Callers are expected to pre-query EarliestAvailablePositionAfter,
	// so this surfacing at runtime indicates an internal bug.
	ErrReservationConflict = errors.New("reservation conflict")

	// ErrBudgetExceeded marks a partial timeline whose cost_fraction > 1.
	// Recoverable: pruned silently unless every candidate prunes.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrDeadlineExceeded marks a partial timeline whose time_fraction > 1.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrInfeasible marks that no candidate survived to the final level.
	ErrInfeasible = errors.New("infeasible")
)

// Kind classifies an error for exit-code mapping (spec §6) and logging.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedInput
	KindInsufficientSamples
	KindReservationConflict
	KindBudgetExceeded
	KindDeadlineExceeded
	KindInfeasible
)

// Classify maps an error produced anywhere in the engine to its Kind by
// walking the error chain with errors.Is, so wrapped errors classify the
// same as their sentinel.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, ErrInsufficientSamples):
		return KindInsufficientSamples
	case errors.Is(err, ErrReservationConflict):
		return KindReservationConflict
	case errors.Is(err, ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, ErrDeadlineExceeded):
		return KindDeadlineExceeded
	case errors.Is(err, ErrInfeasible):
		return KindInfeasible
	default:
		return KindUnknown
	}
}

// ExitCode maps an error to the process exit code defined in spec §6.
func ExitCode(err error) int {
	switch Classify(err) {
	case KindUnknown:
		if err == nil {
			return 0
		}
		return 3
	case KindMalformedInput:
		return 3
	case KindInsufficientSamples:
		return 4
	case KindInfeasible, KindBudgetExceeded, KindDeadlineExceeded:
		return 2
	case KindReservationConflict:
		return 1
	default:
		return 1
	}
}
