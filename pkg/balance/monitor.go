package balance

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
)

// Monitor periodically refreshes the solver balances of a set of denoms
type Monitor struct {
	ctx      context.Context
	querier  Querier
	solver   string
	denoms   []string
	chainID  int
	label    string
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	mu       sync.RWMutex
	running  bool
	balances map[string]math.Int
	updated  time.Time
	logger   logger.Logger
}

// NewMonitor creates a monitor reporting balances of solver for denoms on chainID
func NewMonitor(ctx context.Context, querier Querier, solver string, denoms []string, chainID int, interval time.Duration, logger logger.Logger) *Monitor {
	sorted := append([]string(nil), denoms...)
	sort.Strings(sorted)
	return &Monitor{
		ctx:      ctx,
		querier:  querier,
		solver:   solver,
		denoms:   sorted,
		chainID:  chainID,
		label:    metrics.ChainLabel(chainID),
		interval: interval,
		balances: make(map[string]math.Int),
		logger:   logger,
	}
}

// Start begins the periodic refresh
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.run(m.stopChan, m.done)
}

// Stop halts the refresh and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stopChan)
	done := m.done
	m.stopChan = nil
	m.running = false
	m.mu.Unlock()

	<-done
}

// IsRunning returns whether the monitor loop is active
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Balances returns the last known balances as decimal strings
func (m *Monitor) Balances() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.balances))
	for denom, amount := range m.balances {
		out[denom] = amount.String()
	}
	return out
}

// LastUpdate returns the time of the last successful refresh
func (m *Monitor) LastUpdate() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

func (m *Monitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-stop:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// Refresh queries every denom once
func (m *Monitor) Refresh() {
	for _, denom := range m.denoms {
		amount, err := m.querier.GetBalance(m.ctx, m.solver, denom)
		if err != nil {
			m.logger.ErrorWithChain(m.chainID, "Failed to refresh balance of %s: %v", denom, err)
			continue
		}

		value, _ := new(big.Float).SetInt(amount.BigInt()).Float64()
		metrics.SolverBalance.WithLabelValues(m.label, denom).Set(value)

		m.mu.Lock()
		m.balances[denom] = amount
		m.updated = time.Now()
		m.mu.Unlock()

		m.logger.DebugWithChain(m.chainID, "Solver balance of %s: %s", denom, amount)
	}
}
