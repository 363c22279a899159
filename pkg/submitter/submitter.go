// Package submitter builds, simulates, signs and broadcasts destination chain transactions.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/metrics"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

// Default timings of transaction confirmation
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 1 * time.Second
)

// Chain is the destination chain surface the submitter needs
type Chain interface {
	cosmos.AccountFetcher
	Simulate(ctx context.Context, txBytes []byte) (uint64, error)
	Broadcast(ctx context.Context, txBytes []byte) (*cosmos.TxResponse, error)
	WaitForTx(ctx context.Context, hash string, interval time.Duration) (*cosmos.TxResponse, error)
}

// Config holds the destination chain parameters of a submitter
type Config struct {
	ChainID       string
	Domain        uint32
	Bech32Prefix  string
	GasPrice      cosmos.GasPrice
	GasMultiplier float64
	Settlers      *chains.SettlerTable
	// ConfirmTimeout bounds the wait for inclusion
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Memo           string
}

// Result is the outcome of an included transaction
type Result struct {
	TxHash   string
	Code     uint32
	Height   int64
	GasLimit uint64
	Fee      cosmos.Fee
	Events   []cosmos.Event
}

// Submitter performs exactly one attempt per call; retries belong to the caller
type Submitter struct {
	chain     Chain
	signer    cosmos.Signer
	sequences *cosmos.SequenceManager
	cfg       Config
	logger    logger.Logger
}

// New creates a submitter signing with signer
func New(chain Chain, signer cosmos.Signer, sequences *cosmos.SequenceManager, cfg Config, logger logger.Logger) *Submitter {
	if cfg.GasMultiplier <= 0 {
		cfg.GasMultiplier = cosmos.DefaultGasMultiplier
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Settlers == nil {
		cfg.Settlers = chains.NewSettlerTable(chains.DialectFill)
	}
	return &Submitter{
		chain:     chain,
		signer:    signer,
		sequences: sequences,
		cfg:       cfg,
		logger:    logger,
	}
}

// Address returns the solver address transactions are sent from
func (s *Submitter) Address() string {
	return s.signer.Address()
}

// PendingTransactions returns the number of broadcast transactions awaiting inclusion
func (s *Submitter) PendingTransactions() int {
	return s.sequences.GetPendingTransactionsCount(s.signer.Address())
}

// BuildFill builds the fill for order using the dialect of its destination settler
func (s *Submitter) BuildFill(order *models.ResolvedOrder) (*Fill, error) {
	if order == nil || len(order.FillInstructions) != 1 {
		return BuildFill(order, chains.DialectFill, s.signer.Address(), s.target())
	}
	dialect := s.cfg.Settlers.Dialect(order.FillInstruction().DestinationSettler)
	return BuildFill(order, dialect, s.signer.Address(), s.target())
}

func (s *Submitter) target() Target {
	return Target{Bech32Prefix: s.cfg.Bech32Prefix, Domain: s.cfg.Domain}
}

// SubmitFill builds and submits the fill of order
func (s *Submitter) SubmitFill(ctx context.Context, order *models.ResolvedOrder) (*Result, error) {
	fill, err := s.BuildFill(order)
	if err != nil {
		return nil, err
	}
	s.logger.DebugWithChain(int(s.cfg.Domain), "Filling order %s on %s with %s (%s)",
		order.OrderID.Hex(), fill.Contract, fill.Funds, fill.Dialect)
	return s.Submit(ctx, fill.Contract, fill.Msg, fill.Funds)
}

// Submit simulates, signs and broadcasts msg to contract with funds, then waits for inclusion
func (s *Submitter) Submit(ctx context.Context, contract string, msg cosmos.ExecuteMsg, funds cosmos.Coins) (*Result, error) {
	sender := s.signer.Address()
	execMsg, err := cosmos.NewMsgExecuteContract(sender, contract, msg, funds)
	if err != nil {
		return nil, err
	}

	reservation, err := s.sequences.Reserve(ctx, sender, s.chain)
	if err != nil {
		return nil, err
	}

	req := cosmos.SignRequest{
		ChainID:       s.cfg.ChainID,
		AccountNumber: reservation.AccountNumber,
		Sequence:      reservation.Sequence,
		Messages:      []cosmos.MsgExecuteContract{execMsg},
		Fee:           cosmos.Fee{Amount: cosmos.Coins{}},
		Memo:          s.cfg.Memo,
		Simulate:      true,
	}

	simTx, err := s.signer.Sign(ctx, req)
	if err != nil {
		reservation.Abort(false)
		return nil, fmt.Errorf("failed to sign simulation: %w", err)
	}
	gasUsed, err := s.chain.Simulate(ctx, simTx)
	if err != nil {
		// a simulation with a stale sequence fails as well
		reservation.Abort(containsSequenceMismatch(err))
		return nil, &SimulationError{Err: err, AlreadyFilled: isAlreadyFilled(err.Error())}
	}

	gasLimit := cosmos.GasLimit(gasUsed, s.cfg.GasMultiplier)
	fee := cosmos.CalculateFee(gasLimit, s.cfg.GasPrice)
	req.Fee = fee
	req.Simulate = false

	txBytes, err := s.signer.Sign(ctx, req)
	if err != nil {
		reservation.Abort(false)
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	resp, err := s.chain.Broadcast(ctx, txBytes)
	if err != nil {
		// the node may have accepted the transaction before failing
		reservation.Abort(true)
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}
	if resp.Code != 0 {
		bcastErr := &BroadcastError{
			Stage:     StageCheckTx,
			Code:      resp.Code,
			Codespace: resp.Codespace,
			RawLog:    resp.RawLog,
			TxHash:    resp.TxHash,
		}
		reservation.Abort(bcastErr.IsSequenceMismatch())
		return nil, bcastErr
	}

	reservation.Commit(resp.TxHash)
	metrics.FillGasLimit.WithLabelValues(metrics.ChainLabel(int(s.cfg.Domain))).Observe(float64(gasLimit))
	s.logger.InfoWithChain(int(s.cfg.Domain), "Broadcast tx %s (sequence %d, gas %d, fee %s)",
		resp.TxHash, reservation.Sequence, gasLimit, fee.Amount)

	result := &Result{TxHash: resp.TxHash, GasLimit: gasLimit, Fee: fee}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()
	tx, err := s.chain.WaitForTx(waitCtx, resp.TxHash, s.cfg.PollInterval)
	if err != nil {
		return result, fmt.Errorf("tx %s not confirmed: %w", resp.TxHash, err)
	}
	s.sequences.MarkTransactionConfirmed(sender, reservation.Sequence)

	result.Code = tx.Code
	result.Height = tx.Height
	result.Events = tx.Events
	if tx.Code != 0 {
		return result, &BroadcastError{
			Stage:     StageDeliverTx,
			Code:      tx.Code,
			Codespace: tx.Codespace,
			RawLog:    tx.RawLog,
			TxHash:    tx.TxHash,
		}
	}
	return result, nil
}

// ExpireTransactions drops tracking of transactions pending past the timeout.
// The next reservation then re-reads the sequence from the chain.
func (s *Submitter) ExpireTransactions() []uint64 {
	expired := s.sequences.FindTimeoutTransactions(s.signer.Address())
	if len(expired) > 0 {
		s.logger.NoticeWithChain(int(s.cfg.Domain), "%d transactions timed out, resyncing sequence", len(expired))
	}
	return expired
}

func containsSequenceMismatch(err error) bool {
	var apiErr *cosmos.APIError
	if errors.As(err, &apiErr) {
		_, errorType := classifyMessage(apiErr.Message)
		return errorType == ErrorSequence
	}
	_, errorType := classifyMessage(err.Error())
	return errorType == ErrorSequence
}
