package relayer

import (
	"context"
	"sort"
	"time"

	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

// maxProcessPerTick bounds how many due retries are dispatched at once
const maxProcessPerTick = 10

// backoff returns 2^retries * RetryBaseDelay, capped at RetryMaxDelay
func (r *Relayer) backoff(retries int) time.Duration {
	delay := r.cfg.RetryBaseDelay
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay >= r.cfg.RetryMaxDelay {
			return r.cfg.RetryMaxDelay
		}
	}
	if delay > r.cfg.RetryMaxDelay {
		return r.cfg.RetryMaxDelay
	}
	return delay
}

// scheduleRetry hands a held order to the retry handler. It never blocks a worker:
// when the handoff is full or the relayer is stopping the order fails.
func (r *Relayer) scheduleRetry(rj models.RetryJob) {
	if r.stopping.Load() {
		r.abandon(rj.Order, "shutdown")
		return
	}
	select {
	case r.retryJobs <- rj:
	default:
		r.abandon(rj.Order, "retry handoff full")
	}
}

// retryHandler keeps the retry queue ordered by due time and dispatches due jobs.
// It returns the jobs still queued when ctx ends.
func (r *Relayer) retryHandler(ctx context.Context) []models.RetryJob {
	ticker := time.NewTicker(r.cfg.RetryTick)
	defer ticker.Stop()

	var retryQueue []models.RetryJob
	update := func() {
		r.retryQueue.Store(int64(len(retryQueue)))
		metrics.RetryQueueSize.Set(float64(len(retryQueue)))
	}

	for {
		select {
		case <-ctx.Done():
			return retryQueue

		case rj := <-r.retryJobs:
			if len(retryQueue) >= r.cfg.RetryQueueSize {
				r.logger.Notice("Retry queue at capacity (%d jobs)", r.cfg.RetryQueueSize)
				r.abandon(rj.Order, "retry queue full")
				continue
			}
			retryQueue = append(retryQueue, rj)
			sort.Slice(retryQueue, func(i, j int) bool {
				return retryQueue[i].NextAttempt.Before(retryQueue[j].NextAttempt)
			})
			update()

		case <-ticker.C:
			now := r.now()
			if len(retryQueue) > 0 {
				nextRetryIn := retryQueue[0].NextAttempt.Sub(now).Seconds()
				if nextRetryIn < 0 {
					nextRetryIn = 0
				}
				metrics.NextRetryIn.Set(nextRetryIn)
			}

			var remaining []models.RetryJob
			processed := 0
			for i, rj := range retryQueue {
				if rj.NextAttempt.After(now) || processed >= maxProcessPerTick {
					remaining = append(remaining, rj)
					continue
				}
				r.logger.DebugWithChain(r.cfg.DestinationChainID, "Retrying order %s (attempt #%d, error type: %s)",
					rj.Order.OrderID.Hex(), rj.RetryCount, rj.ErrorType)
				select {
				case r.pendingJobs <- job{order: rj.Order, retries: rj.RetryCount, resumed: true}:
					metrics.PendingOrders.Inc()
					processed++
				case <-ctx.Done():
					return append(remaining, retryQueue[i:]...)
				}
			}
			retryQueue = remaining
			update()
		}
	}
}
