package relayer

import (
	"github.com/speedrun-hq/gofast-relayer/pkg/circuitbreaker"
)

// Status is a point-in-time view of the pipeline
type Status struct {
	Running             bool                 `json:"running"`
	WatcherRunning      bool                 `json:"watcher_running"`
	SourceChainID       int                  `json:"source_chain_id"`
	DestinationChainID  int                  `json:"destination_chain_id"`
	LastBlock           uint64               `json:"last_block"`
	Orders              map[string]int       `json:"orders"`
	RetryQueue          int                  `json:"retry_queue"`
	PendingTransactions int                  `json:"pending_transactions"`
	CircuitBreaker      circuitbreaker.State `json:"circuit_breaker"`
	Balances            map[string]string    `json:"balances,omitempty"`
}

// Status reports the watcher cursor, dedup counts, breaker and balances
func (r *Relayer) Status() Status {
	status := Status{
		Running:             r.IsRunning(),
		WatcherRunning:      r.watcher.IsRunning(),
		SourceChainID:       r.cfg.SourceChainID,
		DestinationChainID:  r.cfg.DestinationChainID,
		LastBlock:           r.watcher.LastBlock(),
		Orders:              r.guard.Counts(),
		RetryQueue:          int(r.retryQueue.Load()),
		PendingTransactions: r.submitter.PendingTransactions(),
		CircuitBreaker:      r.breaker.Snapshot(),
	}
	if r.balances != nil {
		status.Balances = r.balances.Balances()
	}
	return status
}

// ResetCircuitBreaker closes the breaker so fills resume
func (r *Relayer) ResetCircuitBreaker() {
	r.breaker.Reset()
}
