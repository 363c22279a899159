// Package relayer turns Open events on the source chain into fills on the destination chain.
package relayer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/circuitbreaker"
	"github.com/speedrun-hq/gofast-relayer/pkg/dedup"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/resolver"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
	"github.com/speedrun-hq/gofast-relayer/pkg/watcher"
)

// Pipeline defaults
const (
	DefaultWorkerCount     = 5
	DefaultQueueSize       = 100
	DefaultMaxRetries      = 3
	DefaultFillTimeout     = 2 * time.Minute
	DefaultRetryBaseDelay  = 10 * time.Second
	DefaultRetryMaxDelay   = 2 * time.Minute
	DefaultRetryTick       = 10 * time.Second
	DefaultRetryQueueSize  = 1000
	DefaultMonitorInterval = 30 * time.Second
)

// ErrFillDeadlinePassed is returned for orders that can no longer be filled
var ErrFillDeadlinePassed = submitter.ErrDeadlinePassed

// LogWatcher delivers source chain logs to a handler until its context ends
type LogWatcher interface {
	Run(ctx context.Context, handler watcher.Handler) error
	LastBlock() uint64
	IsRunning() bool
}

// FillSubmitter submits fills to the destination chain
type FillSubmitter interface {
	SubmitFill(ctx context.Context, order *models.ResolvedOrder) (*submitter.Result, error)
	PendingTransactions() int
	ExpireTransactions() []uint64
}

// BalanceValidator checks the solver can pay an order's outputs
type BalanceValidator interface {
	Validate(ctx context.Context, outputs []models.Output) error
}

// BalanceReporter exposes the cached solver balances
type BalanceReporter interface {
	Start()
	Stop()
	Balances() map[string]string
}

// Settler initiates settlement of confirmed fills
type Settler interface {
	Enqueue(orderID common.Hash, sourceDomain uint32) bool
	Run(ctx context.Context) error
}

// Deps are the components a relayer is wired from. Settler and Balances are optional.
type Deps struct {
	Watcher   LogWatcher
	Resolver  *resolver.Resolver
	Guard     *dedup.Guard
	Validator BalanceValidator
	Submitter FillSubmitter
	Breaker   *circuitbreaker.CircuitBreaker
	Settler   Settler
	Balances  BalanceReporter
	Logger    logger.Logger
}

// Config holds the pipeline settings
type Config struct {
	SourceChainID      int
	DestinationChainID int
	// Domain restricts balance checks to legs paid on the destination; zero checks every leg
	Domain          uint32
	WorkerCount     int
	QueueSize       int
	MaxRetries      int
	FillTimeout     time.Duration
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RetryTick       time.Duration
	RetryQueueSize  int
	MonitorInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.FillTimeout <= 0 {
		c.FillTimeout = DefaultFillTimeout
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.RetryTick <= 0 {
		c.RetryTick = DefaultRetryTick
	}
	if c.RetryQueueSize <= 0 {
		c.RetryQueueSize = DefaultRetryQueueSize
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
}

// job is an order on its way to a worker. Resumed jobs come from the retry queue
// and already hold their dedup entry.
type job struct {
	order   *models.ResolvedOrder
	retries int
	resumed bool
}

// Relayer is the fill pipeline: watcher intake, a worker pool and a retry queue
type Relayer struct {
	cfg       Config
	watcher   LogWatcher
	resolver  *resolver.Resolver
	guard     *dedup.Guard
	validator BalanceValidator
	submitter FillSubmitter
	breaker   *circuitbreaker.CircuitBreaker
	settler   Settler
	balances  BalanceReporter
	logger    logger.Logger

	pendingJobs chan job
	retryJobs   chan models.RetryJob
	// workCtx outlives shutdown so in-flight fills can finish
	workCtx context.Context

	running    atomic.Bool
	stopping   atomic.Bool
	retryQueue atomic.Int64
	mu         sync.Mutex
	now        func() time.Time
}

// New wires a relayer from its dependencies
func New(deps Deps, cfg Config) (*Relayer, error) {
	switch {
	case deps.Watcher == nil:
		return nil, fmt.Errorf("relayer requires a watcher")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("relayer requires a resolver")
	case deps.Guard == nil:
		return nil, fmt.Errorf("relayer requires a dedup guard")
	case deps.Validator == nil:
		return nil, fmt.Errorf("relayer requires a balance validator")
	case deps.Submitter == nil:
		return nil, fmt.Errorf("relayer requires a submitter")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.EmptyLogger{}
	}
	if deps.Breaker == nil {
		deps.Breaker = circuitbreaker.NewCircuitBreaker(false, 0, 0, 0, deps.Logger)
	}
	cfg.applyDefaults()

	return &Relayer{
		cfg:       cfg,
		watcher:   deps.Watcher,
		resolver:  deps.Resolver,
		guard:     deps.Guard,
		validator: deps.Validator,
		submitter: deps.Submitter,
		breaker:   deps.Breaker,
		settler:   deps.Settler,
		balances:  deps.Balances,
		logger:    deps.Logger,
		now:       time.Now,
	}, nil
}

// Start runs the pipeline until ctx is cancelled or the watcher fails, then shuts down
// in order: the watcher and retry handler stop, queued retries fail, and in-flight fills
// finish. A watcher error is returned.
func (r *Relayer) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("relayer already running")
	}
	defer r.running.Store(false)
	r.stopping.Store(false)

	r.mu.Lock()
	r.pendingJobs = make(chan job, r.cfg.QueueSize)
	r.retryJobs = make(chan models.RetryJob, r.cfg.QueueSize)
	r.workCtx = context.WithoutCancel(ctx)
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info("Starting relayer with %d workers (source %d, destination %d)",
		r.cfg.WorkerCount, r.cfg.SourceChainID, r.cfg.DestinationChainID)

	var workers sync.WaitGroup
	for i := 0; i < r.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			r.worker(id)
		}(i)
	}

	retryDone := make(chan []models.RetryJob, 1)
	go func() {
		retryDone <- r.retryHandler(runCtx)
	}()

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		r.monitor(runCtx)
	}()

	if r.settler != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := r.settler.Run(runCtx); err != nil {
				r.logger.Error("Settlement loop stopped: %v", err)
			}
		}()
	}

	if r.balances != nil {
		r.balances.Start()
		defer r.balances.Stop()
	}

	err := r.watcher.Run(runCtx, r.HandleLog)
	if err != nil {
		r.logger.Error("Watcher stopped: %v", err)
	}
	cancel()

	r.logger.Info("Shutting down relayer")
	r.stopping.Store(true)

	for _, rj := range <-retryDone {
		r.abandon(rj.Order, "shutdown")
	}
	r.retryQueue.Store(0)
	metrics.RetryQueueSize.Set(0)

	close(r.pendingJobs)
	workers.Wait()

	// Retries scheduled by fills that finished during shutdown
	for {
		select {
		case rj := <-r.retryJobs:
			r.abandon(rj.Order, "shutdown")
			continue
		default:
		}
		break
	}

	background.Wait()
	r.logger.Info("Relayer stopped")
	return err
}

// IsRunning reports whether Start is active
func (r *Relayer) IsRunning() bool {
	return r.running.Load()
}

// abandon commits a held order as Failed without attempting it
func (r *Relayer) abandon(order *models.ResolvedOrder, reason string) {
	metrics.DroppedRetries.WithLabelValues(metrics.ChainLabel(r.cfg.DestinationChainID)).Inc()
	r.commit(order.OrderID, models.AttemptFailed, fmt.Errorf("retry dropped: %s", reason))
	r.logger.NoticeWithChain(r.cfg.DestinationChainID, "Dropped retry of order %s: %s", order.OrderID.Hex(), reason)
}

func (r *Relayer) commit(id common.Hash, outcome models.AttemptState, cause error) {
	if err := r.guard.Commit(id, outcome, cause); err != nil {
		r.logger.Error("Failed to commit order %s as %s: %v", id.Hex(), outcome, err)
	}
}

// monitor expires transactions stuck in the mempool
func (r *Relayer) monitor(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := r.submitter.ExpireTransactions(); len(expired) > 0 {
				r.logger.NoticeWithChain(r.cfg.DestinationChainID, "Expired %d stuck transactions", len(expired))
			}
		}
	}
}
