// Package dedup tracks which orders are in flight or done so each is filled at most once per process.
package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

// Guard maps order ids to their fill attempt. State is process-local and lost on restart;
// the destination contract's already-filled check remains the authoritative guard.
type Guard struct {
	mu       sync.Mutex
	attempts map[common.Hash]*models.FillAttempt
	now      func() time.Time
}

// NewGuard creates an empty guard
func NewGuard() *Guard {
	return &Guard{
		attempts: make(map[common.Hash]*models.FillAttempt),
		now:      time.Now,
	}
}

// TryBegin grants progression for id when it has no entry or its last attempt failed.
// Duplicates return false without error.
func (g *Guard) TryBegin(id common.Hash) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, exists := g.attempts[id]
	if exists && attempt.State != models.AttemptFailed {
		return false
	}
	if !exists {
		attempt = &models.FillAttempt{OrderID: id}
		g.attempts[id] = attempt
	}
	attempt.State = models.AttemptPending
	attempt.TxHash = ""
	attempt.Err = nil
	attempt.Attempts++
	attempt.UpdatedAt = g.now()
	return true
}

// MarkSubmitted records the broadcast of txHash for an in-flight order.
// A retried order that was already submitted records its latest transaction.
func (g *Guard) MarkSubmitted(id common.Hash, txHash string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, exists := g.attempts[id]
	if !exists {
		return fmt.Errorf("order %s was never begun", id.Hex())
	}
	if attempt.State.IsTerminal() {
		return fmt.Errorf("order %s is %s, expected in flight", id.Hex(), attempt.State)
	}
	attempt.State = models.AttemptSubmitted
	attempt.TxHash = txHash
	attempt.UpdatedAt = g.now()
	return nil
}

// Commit moves an in-flight order to Confirmed or Failed
func (g *Guard) Commit(id common.Hash, outcome models.AttemptState, cause error) error {
	if !outcome.IsTerminal() {
		return fmt.Errorf("cannot commit order %s as %s", id.Hex(), outcome)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, exists := g.attempts[id]
	if !exists {
		return fmt.Errorf("order %s was never begun", id.Hex())
	}
	if attempt.State.IsTerminal() {
		return fmt.Errorf("order %s is already %s", id.Hex(), attempt.State)
	}
	attempt.State = outcome
	attempt.Err = cause
	attempt.UpdatedAt = g.now()
	return nil
}

// Get returns a copy of the attempt for id
func (g *Guard) Get(id common.Hash) (models.FillAttempt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, exists := g.attempts[id]
	if !exists {
		return models.FillAttempt{}, false
	}
	return *attempt, true
}

// Counts returns the number of orders per state name
func (g *Guard) Counts() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := map[string]int{
		models.AttemptPending.String():   0,
		models.AttemptSubmitted.String(): 0,
		models.AttemptConfirmed.String(): 0,
		models.AttemptFailed.String():    0,
	}
	for _, attempt := range g.attempts {
		counts[attempt.State.String()]++
	}
	return counts
}

// Len returns the number of tracked orders
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.attempts)
}
