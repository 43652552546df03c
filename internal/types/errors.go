package types

import (
	"errors"
	"fmt"
)

// ErrClassifierTimeout marks a classifier call that missed its deadline.
// The orchestrator treats it as an abstention, never as a blocking failure.
var ErrClassifierTimeout = errors.New("classifier timeout")

// ErrGatewayUnavailable marks a gateway that cannot accept new submissions.
// Monitors keep running; only new order flow stops.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// AdapterError is a transient per-source polling failure. It is retried
// with backoff and never propagates past the owning monitor.
type AdapterError struct {
	SourceID string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %v", e.SourceID, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ClassifierError is a failed or malformed classifier response.
type ClassifierError struct {
	ClassifierID string
	Err          error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.ClassifierID, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// RiskError rejects a trading intent before submission. The contract
// returns to IDLE and the intent is discarded.
type RiskError struct {
	ContractID string
	Reason     string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk rejected on %s: %s", e.ContractID, e.Reason)
}

// IsRiskRejected reports whether err is a risk rejection.
func IsRiskRejected(err error) bool {
	var re *RiskError
	return errors.As(err, &re)
}

// OrderRejectedError is a venue rejection of a submitted order.
type OrderRejectedError struct {
	OrderID string
	Reason  RejectionReason
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order %s rejected: %s", e.OrderID, e.Reason)
}
