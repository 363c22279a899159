package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AttemptState is the state of a fill attempt for one order
type AttemptState int

const (
	// AttemptPending means a worker owns the order and has not broadcast yet
	AttemptPending AttemptState = iota
	// AttemptSubmitted means a fill transaction was broadcast
	AttemptSubmitted
	// AttemptConfirmed means the order is filled
	AttemptConfirmed
	// AttemptFailed means the last attempt ended without a fill
	AttemptFailed
)

// String returns the lowercase name of the state
func (s AttemptState) String() string {
	switch s {
	case AttemptPending:
		return "pending"
	case AttemptSubmitted:
		return "submitted"
	case AttemptConfirmed:
		return "confirmed"
	case AttemptFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state ends an attempt
func (s AttemptState) IsTerminal() bool {
	return s == AttemptConfirmed || s == AttemptFailed
}

// FillAttempt records the progress of one order through the relayer
type FillAttempt struct {
	OrderID   common.Hash
	State     AttemptState
	TxHash    string
	Err       error
	Attempts  int
	UpdatedAt time.Time
}
