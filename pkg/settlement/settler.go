// Package settlement initiates repayment of confirmed fills back to the source chain.
package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Hyperlane dispatch event carrying the id of the settlement message
const (
	DispatchEventType = "wasm-mailbox_dispatch_id"
	MessageIDKey      = "message_id"
)

// Settler defaults
const (
	DefaultQueueSize     = 100
	DefaultQuoteTTL      = 5 * time.Minute
	DefaultCheckInterval = time.Minute
	DefaultMaxAge        = 24 * time.Hour
)

// Querier runs smart queries against destination contracts
type Querier interface {
	SmartQuery(ctx context.Context, contract string, query interface{}, out interface{}) error
}

// Executor submits an execute message, applying the same gas and fee rules as fills
type Executor interface {
	Submit(ctx context.Context, contract string, msg cosmos.ExecuteMsg, funds cosmos.Coins) (*submitter.Result, error)
}

// DeliveryChecker reports whether a settlement message reached the source chain
type DeliveryChecker interface {
	Delivered(ctx context.Context, messageID common.Hash) (bool, error)
}

// Config holds the gateway and repayment settings
type Config struct {
	ChainID int
	Gateway string
	// RepaymentAddress is the unprefixed bytes32 hex repaid on the source chain
	RepaymentAddress string
	// Fee is attached when the gateway cannot quote one
	Fee           cosmos.Coin
	QueueSize     int
	QuoteTTL      time.Duration
	CheckInterval time.Duration
	// MaxAge is how long an undelivered settlement is followed
	MaxAge time.Duration
}

// Settlement is an initiated settlement of one order
type Settlement struct {
	OrderID      common.Hash  `json:"order_id"`
	SourceDomain uint32       `json:"source_domain"`
	TxHash       string       `json:"tx_hash"`
	MessageID    common.Hash  `json:"message_id"`
	Fee          cosmos.Coins `json:"fee"`
	InitiatedAt  time.Time    `json:"initiated_at"`
}

type request struct {
	orderID      common.Hash
	sourceDomain uint32
}

// Settler queues confirmed fills and initiates their settlement on the gateway
type Settler struct {
	querier  Querier
	executor Executor
	tracker  DeliveryChecker
	quotes   *cosmos.QuoteCache
	cfg      Config
	queue    chan request
	logger   logger.Logger

	now func() time.Time

	mu sync.Mutex
	// settlements awaiting delivery, oldest first
	settlements []*Settlement
}

type quoteInitiateSettlementQuery struct {
	QuoteInitiateSettlement quoteInitiateSettlement `json:"quote_initiate_settlement"`
}

type quoteInitiateSettlement struct {
	OrderIDs         []string `json:"order_ids"`
	RepaymentAddress string   `json:"repayment_address"`
	SourceDomain     uint32   `json:"source_domain"`
}

// NewSettler creates a settler. tracker may be nil, in which case delivery is not followed.
func NewSettler(querier Querier, executor Executor, tracker DeliveryChecker, cfg Config, logger logger.Logger) *Settler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Settler{
		querier:  querier,
		executor: executor,
		tracker:  tracker,
		quotes:   cosmos.NewQuoteCache(cfg.QuoteTTL),
		cfg:      cfg,
		queue:    make(chan request, cfg.QueueSize),
		logger:   logger,
		now:      time.Now,
	}
}

// Enqueue queues orderID for settlement without blocking. It returns false when the queue is full.
func (s *Settler) Enqueue(orderID common.Hash, sourceDomain uint32) bool {
	select {
	case s.queue <- request{orderID: orderID, sourceDomain: sourceDomain}:
		return true
	default:
		metrics.Settlements.WithLabelValues(metrics.ChainLabel(s.cfg.ChainID), "dropped").Inc()
		return false
	}
}

// Quote returns the protocol fee for settling orderID to sourceDomain.
// Quotes are cached per source domain; the configured fee is used when the gateway cannot quote.
func (s *Settler) Quote(ctx context.Context, orderID common.Hash, sourceDomain uint32) cosmos.Coins {
	key := fmt.Sprintf("%d", sourceDomain)
	if coins, ok := s.quotes.Get(key); ok {
		return coins
	}

	query := quoteInitiateSettlementQuery{QuoteInitiateSettlement: quoteInitiateSettlement{
		OrderIDs:         []string{translate.BytesToHex(orderID[:])},
		RepaymentAddress: s.cfg.RepaymentAddress,
		SourceDomain:     sourceDomain,
	}}
	var quoted cosmos.Coins
	if err := s.querier.SmartQuery(ctx, s.cfg.Gateway, query, &quoted); err != nil {
		s.logger.NoticeWithChain(s.cfg.ChainID, "Failed to quote settlement fee, using %s: %v", s.cfg.Fee, err)
		return cosmos.Coins{s.cfg.Fee}
	}
	if len(quoted) == 0 || quoted.Validate() != nil {
		s.logger.NoticeWithChain(s.cfg.ChainID, "Gateway returned an unusable quote %q, using %s", quoted, s.cfg.Fee)
		return cosmos.Coins{s.cfg.Fee}
	}

	merged, err := cosmos.MergeCoins(quoted...)
	if err != nil {
		s.logger.NoticeWithChain(s.cfg.ChainID, "Gateway quote %q does not sum, using %s: %v", quoted, s.cfg.Fee, err)
		return cosmos.Coins{s.cfg.Fee}
	}
	quoted = merged
	s.quotes.Set(key, quoted)
	return quoted
}

// Settle initiates settlement of a filled order and returns the dispatched message id
func (s *Settler) Settle(ctx context.Context, orderID common.Hash, sourceDomain uint32) (*Settlement, error) {
	fee := s.Quote(ctx, orderID, sourceDomain)
	msg := cosmos.InitiateSettlementMsg{
		OrderID:          translate.BytesToHex(orderID[:]),
		RepaymentAddress: s.cfg.RepaymentAddress,
	}

	result, err := s.executor.Submit(ctx, s.cfg.Gateway, msg, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate settlement of %s: %w", orderID.Hex(), err)
	}

	settlement := &Settlement{
		OrderID:      orderID,
		SourceDomain: sourceDomain,
		TxHash:       result.TxHash,
		Fee:          fee,
	}
	tx := cosmos.TxResponse{Events: result.Events}
	if id, ok := tx.FindAttribute(DispatchEventType, MessageIDKey); ok {
		raw, err := translate.HexToBytes(id)
		if err != nil || len(raw) != common.HashLength {
			return settlement, fmt.Errorf("settlement of %s dispatched an invalid message id %q", orderID.Hex(), id)
		}
		settlement.MessageID = common.BytesToHash(raw)
	} else {
		s.logger.NoticeWithChain(s.cfg.ChainID, "Settlement tx %s has no dispatch event", result.TxHash)
	}
	return settlement, nil
}

// Run settles queued orders until ctx ends, periodically checking delivery of sent settlements
func (s *Settler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	label := metrics.ChainLabel(s.cfg.ChainID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.queue:
			settlement, err := s.Settle(ctx, req.orderID, req.sourceDomain)
			if err != nil {
				metrics.Settlements.WithLabelValues(label, "failed").Inc()
				s.logger.ErrorWithChain(s.cfg.ChainID, "%v", err)
				continue
			}
			metrics.Settlements.WithLabelValues(label, "initiated").Inc()
			s.logger.InfoWithChain(s.cfg.ChainID, "Initiated settlement of order %s in tx %s (message %s, fee %s)",
				settlement.OrderID.Hex(), settlement.TxHash, settlement.MessageID.Hex(), settlement.Fee)
			s.track(settlement)
		case <-ticker.C:
			s.CheckDelivery(ctx)
		}
	}
}

// track follows delivery of settlement when there is a tracker and a message id to look for
func (s *Settler) track(settlement *Settlement) {
	if s.tracker == nil || settlement.MessageID == (common.Hash{}) {
		return
	}
	settlement.InitiatedAt = s.now()
	s.mu.Lock()
	s.settlements = append(s.settlements, settlement)
	s.mu.Unlock()
}

// CheckDelivery asks the tracker about every pending settlement. Delivered settlements
// and those older than MaxAge are no longer followed.
func (s *Settler) CheckDelivery(ctx context.Context) {
	if s.tracker == nil {
		return
	}
	label := metrics.ChainLabel(s.cfg.ChainID)
	for _, settlement := range s.Pending() {
		if age := s.now().Sub(settlement.InitiatedAt); age > s.cfg.MaxAge {
			s.remove(settlement.MessageID)
			metrics.Settlements.WithLabelValues(label, "expired").Inc()
			s.logger.NoticeWithChain(s.cfg.ChainID, "Settlement of order %s not delivered after %s (message %s)",
				settlement.OrderID.Hex(), age.Round(time.Second), settlement.MessageID.Hex())
			continue
		}
		delivered, err := s.tracker.Delivered(ctx, settlement.MessageID)
		if err != nil {
			s.logger.DebugWithChain(s.cfg.ChainID, "Delivery check of %s failed: %v", settlement.MessageID.Hex(), err)
			continue
		}
		if !delivered {
			continue
		}
		s.remove(settlement.MessageID)
		metrics.Settlements.WithLabelValues(label, "delivered").Inc()
		s.logger.InfoWithChain(s.cfg.ChainID, "Settlement of order %s delivered (message %s)",
			settlement.OrderID.Hex(), settlement.MessageID.Hex())
	}
}

func (s *Settler) remove(messageID common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.settlements[:0]
	for _, st := range s.settlements {
		if st.MessageID != messageID {
			kept = append(kept, st)
		}
	}
	for i := len(kept); i < len(s.settlements); i++ {
		s.settlements[i] = nil
	}
	s.settlements = kept
}

// Pending returns copies of the settlements awaiting delivery
func (s *Settler) Pending() []Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Settlement, len(s.settlements))
	for i, st := range s.settlements {
		out[i] = *st
	}
	return out
}
