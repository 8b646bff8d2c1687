package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceUnavailable is returned once every price tier has been exhausted.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrInsufficientData marks a statistic whose minimum sample size was not met.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDownstreamFetch matches every DownstreamFetchError.
	ErrDownstreamFetch = errors.New("downstream fetch failed")
	// ErrNoLedger is returned by queries issued before any ledger was loaded.
	ErrNoLedger = errors.New("no ledger loaded")
)

// LedgerValidationError describes a malformed ledger row.
type LedgerValidationError struct {
	Field  string
	Value  string
	Reason string
	Row    int // 1-based data row, 0 when unknown
}

func (e *LedgerValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("ledger row %d: invalid %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("ledger: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// DownstreamFetchError wraps a failure of an external price source or a store write-back.
type DownstreamFetchError struct {
	Err    error
	Source string
	Symbol string
}

func (e *DownstreamFetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Symbol, e.Source, e.Err)
}

func (e *DownstreamFetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDownstreamFetch) hold for any DownstreamFetchError.
func (e *DownstreamFetchError) Is(target error) bool {
	return target == ErrDownstreamFetch
}
