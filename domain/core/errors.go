package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Input errors (fatal for a whole analysis)
	ErrEmptyTable          = errors.New("no columns to parse from input")
	ErrUnparsableTable     = errors.New("input cannot be tokenized into a table")
	ErrGroupColumnMissing  = errors.New("grouping column not found")
	ErrReplicationTooLarge = errors.New("replication exceeds the row limit")

	// Per-metric errors (recorded in the metric's own report)
	ErrMetricColumnMissing = errors.New("metric column not found")
	ErrNoDataAfterCleaning = errors.New("no data after cleaning")
	ErrTooFewGroups        = errors.New("need at least two groups")
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrDegenerateStatistic = errors.New("degenerate test statistic")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewGroupColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrGroupColumnMissing, column)
}

func NewReplicationError(replicate, rows, limit int) error {
	return fmt.Errorf("%w: %d rows x %d exceeds %d", ErrReplicationTooLarge, rows, replicate, limit)
}

func NewDegenerateError(test string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrDegenerateStatistic, test, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err aborts an analysis before any metric runs.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrUnparsableTable) ||
		errors.Is(err, ErrGroupColumnMissing) ||
		errors.Is(err, ErrReplicationTooLarge)
}

// IsMetricError reports whether err is recoverable at the metric level.
func IsMetricError(err error) bool {
	return errors.Is(err, ErrMetricColumnMissing) ||
		errors.Is(err, ErrNoDataAfterCleaning) ||
		errors.Is(err, ErrTooFewGroups) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateStatistic)
}
