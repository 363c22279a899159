package relayer

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/resolver"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
)

// HandleLog resolves a source log and queues the order for a worker.
// It blocks while the queue is full.
func (r *Relayer) HandleLog(ctx context.Context, log types.Log) error {
	source := metrics.ChainLabel(r.cfg.SourceChainID)

	order, err := r.resolver.Decode(log)
	if err != nil {
		var decodeErr *resolver.DecodeError
		if errors.As(err, &decodeErr) {
			if decodeErr.Kind == resolver.UnexpectedEvent {
				r.logger.DebugWithChain(r.cfg.SourceChainID, "Ignoring log %s/%d: %v", log.TxHash.Hex(), log.Index, err)
				return nil
			}
			metrics.DecodeErrors.WithLabelValues(source, decodeErr.Kind.String()).Inc()
			r.logger.ErrorWithChain(r.cfg.SourceChainID, "Malformed Open event in tx %s: %v", log.TxHash.Hex(), err)
			return err
		}

		_, errorType := submitter.Classify(err)
		metrics.DecodeErrors.WithLabelValues(source, errorType).Inc()
		r.logger.ErrorWithChain(r.cfg.SourceChainID, "Cannot fill order from tx %s (%s): %v", log.TxHash.Hex(), errorType, err)
		return err
	}

	metrics.OrdersObserved.WithLabelValues(source).Inc()
	r.logger.InfoWithChain(r.cfg.SourceChainID, "Observed order %s at block %d", order.OrderID.Hex(), order.BlockNumber)

	select {
	case r.pendingJobs <- job{order: order}:
		metrics.PendingOrders.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
