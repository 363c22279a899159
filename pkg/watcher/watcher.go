// Package watcher streams source chain logs matching an event signature, either once over a
// historical range or continuously from a cursor.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
)

// Defaults of the scan parameters
const (
	DefaultMaxBlockRange = 1000
	DefaultPollInterval  = 5 * time.Second
)

// LogSource is the source chain surface the watcher reads from. ethclient.Client implements it.
type LogSource interface {
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// Handler receives logs in block and index order
type Handler func(ctx context.Context, log types.Log) error

// Config selects the logs to watch
type Config struct {
	ChainID int
	Address common.Address
	// Topics[0] is the event signature, later entries filter indexed arguments
	Topics             [][]common.Hash
	MaxBlockRange      uint64
	ConfirmationBlocks uint64
	PollInterval       time.Duration
	// StartBlock is the first block of the catch up; zero starts at the safe head
	StartBlock uint64
	// Subscribe tries a push subscription before falling back to polling
	Subscribe bool
}

// Watcher delivers matching logs to a handler
type Watcher struct {
	source LogSource
	cfg    Config
	label  string
	logger logger.Logger

	mu        sync.RWMutex
	lastBlock uint64
	running   bool

	delivered     atomic.Uint64
	handlerErrors atomic.Uint64
}

// New creates a watcher over source
func New(source LogSource, cfg Config, logger logger.Logger) *Watcher {
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = DefaultMaxBlockRange
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		source: source,
		cfg:    cfg,
		label:  metrics.ChainLabel(cfg.ChainID),
		logger: logger,
	}
}

// LastBlock returns the last block fully scanned
func (w *Watcher) LastBlock() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastBlock
}

// IsRunning reports whether Run is active
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Delivered returns the number of logs passed to handlers
func (w *Watcher) Delivered() uint64 {
	return w.delivered.Load()
}

// HandlerErrors returns the number of handler calls that returned an error
func (w *Watcher) HandlerErrors() uint64 {
	return w.handlerErrors.Load()
}

func (w *Watcher) setLastBlock(block uint64) {
	w.mu.Lock()
	if block > w.lastBlock {
		w.lastBlock = block
	}
	w.mu.Unlock()
	metrics.WatcherLastBlock.WithLabelValues(w.label).Set(float64(block))
}

func (w *Watcher) query(from, to *big.Int) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{w.cfg.Address},
		Topics:    w.cfg.Topics,
	}
}

// ScanRange delivers the logs of [from, to] in chunks of MaxBlockRange and returns the last block scanned.
// Handler errors are logged and counted without stopping the scan.
func (w *Watcher) ScanRange(ctx context.Context, from, to uint64, handler Handler) (uint64, error) {
	if from > to {
		return to, nil
	}

	var scanned uint64
	if from > 0 {
		scanned = from - 1
	}
	for start := from; start <= to; start += w.cfg.MaxBlockRange {
		end := start + w.cfg.MaxBlockRange - 1
		if end > to || end < start {
			end = to
		}

		logs, err := w.source.FilterLogs(ctx, w.query(new(big.Int).SetUint64(start), new(big.Int).SetUint64(end)))
		if err != nil {
			return scanned, fmt.Errorf("failed to filter logs %d-%d: %w", start, end, err)
		}
		if len(logs) > 0 {
			w.logger.DebugWithChain(w.cfg.ChainID, "Found %d logs in blocks %d-%d", len(logs), start, end)
		}

		sort.SliceStable(logs, func(i, j int) bool {
			if logs[i].BlockNumber != logs[j].BlockNumber {
				return logs[i].BlockNumber < logs[j].BlockNumber
			}
			return logs[i].Index < logs[j].Index
		})

		for _, log := range logs {
			if err := ctx.Err(); err != nil {
				return scanned, err
			}
			w.deliver(ctx, log, handler)
		}

		scanned = end
		if end == to {
			break
		}
	}
	return scanned, nil
}

func (w *Watcher) deliver(ctx context.Context, log types.Log, handler Handler) {
	if log.Removed {
		w.logger.DebugWithChain(w.cfg.ChainID, "Skipping removed log %s:%d", log.TxHash.Hex(), log.Index)
		return
	}
	w.delivered.Add(1)
	if err := handler(ctx, log); err != nil {
		w.handlerErrors.Add(1)
		w.logger.DebugWithChain(w.cfg.ChainID, "Handler failed for log %s:%d in block %d: %v",
			log.TxHash.Hex(), log.Index, log.BlockNumber, err)
	}
}

func (w *Watcher) safeHead(ctx context.Context) (uint64, error) {
	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	if head < w.cfg.ConfirmationBlocks {
		return 0, nil
	}
	return head - w.cfg.ConfirmationBlocks, nil
}

// catchUp scans from the cursor up to target
func (w *Watcher) catchUp(ctx context.Context, target uint64, handler Handler) error {
	from := w.LastBlock() + 1
	if from > target {
		return nil
	}
	scanned, err := w.ScanRange(ctx, from, target, handler)
	if scanned >= from {
		w.setLastBlock(scanned)
	}
	return err
}

// Run catches up from StartBlock and then follows the chain until ctx is cancelled
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.initCursor(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	w.logger.InfoWithChain(w.cfg.ChainID, "Watching %s from block %d", w.cfg.Address.Hex(), w.LastBlock()+1)

	subscribe := w.cfg.Subscribe
	for {
		if ctx.Err() != nil {
			return nil
		}

		if safe, err := w.safeHead(ctx); err != nil {
			w.logger.ErrorWithChain(w.cfg.ChainID, "Catch up failed: %v", err)
		} else if err := w.catchUp(ctx, safe, handler); err != nil && ctx.Err() == nil {
			w.logger.ErrorWithChain(w.cfg.ChainID, "Catch up failed at block %d: %v", w.LastBlock()+1, err)
		}

		if subscribe {
			err := w.follow(ctx, handler)
			if ctx.Err() != nil {
				return nil
			}
			if isSubscriptionUnsupported(err) {
				w.logger.NoticeWithChain(w.cfg.ChainID, "Subscriptions unavailable, polling every %v", w.cfg.PollInterval)
				subscribe = false
				continue
			}
			w.logger.ErrorWithChain(w.cfg.ChainID, "Subscription ended: %v, catching up before resubscribing", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Watcher) initCursor(ctx context.Context) error {
	if w.cfg.StartBlock > 0 {
		w.mu.Lock()
		w.lastBlock = w.cfg.StartBlock - 1
		w.mu.Unlock()
		return nil
	}
	safe, err := w.safeHead(ctx)
	if err != nil {
		return err
	}
	w.setLastBlock(safe)
	return nil
}

// follow subscribes to new logs and backfills the blocks between the cursor and the head.
// It returns when the subscription fails or ctx is done.
func (w *Watcher) follow(ctx context.Context, handler Handler) error {
	sink := make(chan types.Log, 128)
	sub, err := w.source.SubscribeFilterLogs(ctx, w.query(nil, nil), sink)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	if err := w.catchUp(ctx, head, handler); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case log := <-sink:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.deliver(ctx, log, handler)
			if !log.Removed && log.BlockNumber > 0 {
				// later logs of the same block may still arrive
				w.setLastBlock(log.BlockNumber - 1)
			}
		}
	}
}

func isSubscriptionUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "notifications not supported") ||
		strings.Contains(msg, "subscription not supported")
}
