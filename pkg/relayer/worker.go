package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
)

// worker processes jobs until the queue is closed
func (r *Relayer) worker(id int) {
	r.logger.Debug("Worker %d started", id)
	defer r.logger.Debug("Worker %d stopped", id)

	for j := range r.pendingJobs {
		metrics.PendingOrders.Dec()
		if r.stopping.Load() {
			// Queued jobs that never began are dropped; held retries fail
			if j.resumed {
				r.abandon(j.order, "shutdown")
			}
			continue
		}
		r.process(j)
	}
}

// process takes one order through the fill steps
func (r *Relayer) process(j job) {
	order := j.order
	id := order.OrderID

	if !j.resumed && !r.guard.TryBegin(id) {
		metrics.DuplicateEvents.WithLabelValues(metrics.ChainLabel(r.cfg.SourceChainID)).Inc()
		r.logger.DebugWithChain(r.cfg.SourceChainID, "Skipping order %s, already in flight or filled", id.Hex())
		return
	}

	start := time.Now()

	if err := r.checkDeadline(order); err != nil {
		r.finish(j, nil, err, start)
		return
	}

	if r.breaker.IsOpen() {
		r.logger.NoticeWithChain(r.cfg.DestinationChainID, "Circuit breaker open, deferring order %s", id.Hex())
		r.scheduleRetry(models.RetryJob{
			Order:       order,
			RetryCount:  j.retries,
			NextAttempt: r.now().Add(r.cfg.RetryBaseDelay),
			ErrorType:   "circuit_open",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.workCtx, r.cfg.FillTimeout)
	defer cancel()

	if err := r.validator.Validate(ctx, submitter.Legs(order.MaxSpent, r.cfg.Domain)); err != nil {
		r.finish(j, nil, err, start)
		return
	}

	result, err := r.submitter.SubmitFill(ctx, order)
	if result != nil && result.TxHash != "" {
		if markErr := r.guard.MarkSubmitted(id, result.TxHash); markErr != nil {
			r.logger.Error("Failed to mark order %s submitted: %v", id.Hex(), markErr)
		}
	}
	r.finish(j, result, err, start)
}

func (r *Relayer) checkDeadline(order *models.ResolvedOrder) error {
	if order.FillDeadline == 0 {
		return nil
	}
	if r.now().Unix() > int64(order.FillDeadline) {
		return fmt.Errorf("order %s deadline %d: %w", order.OrderID.Hex(), order.FillDeadline, ErrFillDeadlinePassed)
	}
	return nil
}

// finish records the outcome of an attempt: commit, retry or fail
func (r *Relayer) finish(j job, result *submitter.Result, err error, start time.Time) {
	id := j.order.OrderID
	dest := metrics.ChainLabel(r.cfg.DestinationChainID)

	if err == nil {
		r.commit(id, models.AttemptConfirmed, nil)
		r.breaker.RecordSuccess()
		metrics.OrdersFilled.WithLabelValues(dest, "success").Inc()
		metrics.FillProcessingTime.WithLabelValues(dest).Observe(time.Since(start).Seconds())
		r.logger.InfoWithChain(r.cfg.DestinationChainID, "Filled order %s in tx %s at height %d (fee %s)",
			id.Hex(), result.TxHash, result.Height, result.Fee.Amount)
		r.settle(j.order)
		return
	}

	retry, errorType := submitter.Classify(err)
	metrics.FillErrors.WithLabelValues(dest, errorType).Inc()

	if errorType == submitter.ErrorAlreadyProcessed {
		r.commit(id, models.AttemptConfirmed, nil)
		metrics.OrdersFilled.WithLabelValues(dest, "already_filled").Inc()
		r.logger.InfoWithChain(r.cfg.DestinationChainID, "Order %s is already filled on the destination", id.Hex())
		return
	}

	if retry {
		if r.breaker.RecordFailure() {
			r.logger.ErrorWithChain(r.cfg.DestinationChainID, "Circuit breaker tripped after fill error: %v", err)
		}
	}

	if retry && j.retries < r.cfg.MaxRetries {
		delay := r.backoff(j.retries)
		metrics.RetryCount.WithLabelValues(dest).Inc()
		r.logger.InfoWithChain(r.cfg.DestinationChainID, "Fill of order %s failed (%s), retry %d/%d in %v: %v",
			id.Hex(), errorType, j.retries+1, r.cfg.MaxRetries, delay, err)
		r.scheduleRetry(models.RetryJob{
			Order:       j.order,
			RetryCount:  j.retries + 1,
			NextAttempt: r.now().Add(delay),
			ErrorType:   errorType,
		})
		return
	}

	if retry {
		metrics.MaxRetriesReached.WithLabelValues(dest, errorType).Inc()
		r.logger.ErrorWithChain(r.cfg.DestinationChainID, "Giving up on order %s after %d retries (%s): %v",
			id.Hex(), j.retries, errorType, err)
	} else {
		metrics.PermanentErrors.WithLabelValues(dest, errorType).Inc()
		r.logger.ErrorWithChain(r.cfg.DestinationChainID, "Order %s failed permanently (%s): %v", id.Hex(), errorType, err)
	}
	r.commit(id, models.AttemptFailed, err)
	metrics.OrdersFilled.WithLabelValues(dest, "failed").Inc()
}

func (r *Relayer) settle(order *models.ResolvedOrder) {
	if r.settler == nil {
		return
	}
	domain := order.OriginChain()
	if domain <= 0 {
		r.logger.Notice("Not settling order %s, origin chain unknown", order.OrderID.Hex())
		return
	}
	if !r.settler.Enqueue(order.OrderID, uint32(domain)) {
		r.logger.NoticeWithChain(r.cfg.DestinationChainID, "Settlement queue full, order %s not settled", order.OrderID.Hex())
	}
}
