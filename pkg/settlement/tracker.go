package settlement

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/gofast-relayer/pkg/contracts"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/watcher"
)

// Tracker looks for delivery of settlement messages on the source chain mailbox
type Tracker struct {
	source        watcher.LogSource
	mailbox       common.Address
	filterer      *contracts.MailboxFilterer
	chainID       int
	lookback      uint64
	maxBlockRange uint64
	logger        logger.Logger
}

// NewTracker creates a tracker scanning lookback blocks back from head
func NewTracker(source watcher.LogSource, mailbox common.Address, chainID int, lookback, maxBlockRange uint64, logger logger.Logger) (*Tracker, error) {
	filterer, err := contracts.NewMailboxFilterer(mailbox, nil)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		source:        source,
		mailbox:       mailbox,
		filterer:      filterer,
		chainID:       chainID,
		lookback:      lookback,
		maxBlockRange: maxBlockRange,
		logger:        logger,
	}, nil
}

// Delivered reports whether the mailbox emitted ProcessId(messageID) within the lookback window
func (t *Tracker) Delivered(ctx context.Context, messageID common.Hash) (bool, error) {
	head, err := t.source.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get head block: %w", err)
	}
	var from uint64
	if head > t.lookback {
		from = head - t.lookback
	}

	scanner := watcher.New(t.source, watcher.Config{
		ChainID:       t.chainID,
		Address:       t.mailbox,
		Topics:        [][]common.Hash{{contracts.ProcessIdEventID()}, {messageID}},
		MaxBlockRange: t.maxBlockRange,
	}, t.logger)

	found := false
	_, err = scanner.ScanRange(ctx, from, head, func(_ context.Context, log types.Log) error {
		event, err := t.filterer.ParseProcessId(log)
		if err != nil {
			return err
		}
		if common.Hash(event.MessageId) == messageID {
			found = true
		}
		return nil
	})
	if err != nil {
		return found, err
	}
	return found, nil
}
