package models

import (
	"time"
)

// RetryJob represents a scheduled retry for an order
type RetryJob struct {
	Order       *ResolvedOrder
	RetryCount  int
	NextAttempt time.Time
	ErrorType   string // Type of error that caused the retry
}
