package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	OrdersObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_orders_observed_total",
		Help: "The total number of Open events decoded into orders",
	}, []string{"chain_id"})

	OrdersFilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_orders_filled_total",
		Help: "The total number of finished fill attempts by outcome",
	}, []string{"chain_id", "status"})

	FillProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_fill_processing_seconds",
		Help:    "Time taken from dequeue to a terminal fill outcome",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // Start at 0.5s with 10 buckets doubling in size
	}, []string{"chain_id"})

	FillGasLimit = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_fill_gas_limit",
		Help:    "Gas limit of broadcast fill transactions",
		Buckets: prometheus.ExponentialBuckets(100000, 2, 8),
	}, []string{"chain_id"})

	PendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_pending_orders",
		Help: "The number of orders queued and waiting for a worker",
	})

	RetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_retry_count_total",
		Help: "The total number of retried fills",
	}, []string{"chain_id"})

	FillErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_fill_errors_total",
		Help: "Total number of fill errors by type",
	}, []string{"chain_id", "error_type"})

	PermanentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_permanent_errors_total",
		Help: "Total number of permanent errors that won't be retried",
	}, []string{"chain_id", "error_type"})

	MaxRetriesReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_max_retries_reached_total",
		Help: "Number of orders that reached maximum retry attempts",
	}, []string{"chain_id", "error_type"})

	RetryQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_retry_queue_size",
		Help: "Current size of the retry queue",
	})

	NextRetryIn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_next_retry_seconds",
		Help: "Seconds until the next scheduled retry",
	})

	DroppedRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_retries_dropped_total",
		Help: "Number of retries that were dropped due to queue capacity or shutdown",
	}, []string{"chain_id"})

	DuplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_duplicate_events_total",
		Help: "Orders delivered again while already in flight or filled",
	}, []string{"chain_id"})

	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_decode_errors_total",
		Help: "Logs that could not be resolved into an order",
	}, []string{"chain_id", "kind"})

	SolverBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relayer_solver_balance",
		Help: "Solver balance on the destination chain in base units",
	}, []string{"chain_id", "denom"})

	WatcherLastBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relayer_watcher_last_block",
		Help: "Last source block scanned by the watcher",
	}, []string{"chain_id"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_settlements_total",
		Help: "Settlement initiations by outcome",
	}, []string{"chain_id", "status"})
)

// ChainLabel renders a chain id as the chain_id label value
func ChainLabel(chainID int) string {
	return strconv.Itoa(chainID)
}
