package cosmos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
)

// TransactionStatus represents the status of a tracked transaction
type TransactionStatus int

const (
	// TxPending indicates the transaction was broadcast and is not yet included
	TxPending TransactionStatus = iota
	// TxConfirmed indicates the transaction was included
	TxConfirmed
	// TxTimedOut indicates the transaction was not included in time
	TxTimedOut
)

// TransactionRecord tracks a broadcast transaction by sequence
type TransactionRecord struct {
	Hash      string
	Sequence  uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus
}

// AccountFetcher reads account number and sequence from the chain
type AccountFetcher interface {
	GetAccount(ctx context.Context, address string) (*Account, error)
}

// SequenceManager serialises signing and broadcasting per account.
// Only one reservation per account is outstanding at a time.
type SequenceManager struct {
	accounts     map[string]*accountSequence
	mu           sync.RWMutex
	txTimeout    time.Duration
	syncInterval time.Duration
	logger       logger.Logger
}

type accountSequence struct {
	// slot is a one-token semaphore so waiting can honour a context
	slot          chan struct{}
	accountNumber uint64
	sequence      uint64
	pendingTxs    map[uint64]*TransactionRecord
	lastSync      time.Time
	// stale forces the next reservation to take the chain's sequence as is
	stale bool
	mu    sync.Mutex
}

// Reservation holds the account slot between signing and broadcast
type Reservation struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64

	manager *SequenceManager
	account *accountSequence
	once    sync.Once
}

// NewSequenceManager creates a sequence manager
func NewSequenceManager(logger logger.Logger) *SequenceManager {
	return &SequenceManager{
		accounts:     make(map[string]*accountSequence),
		txTimeout:    5 * time.Minute,
		syncInterval: 5 * time.Minute,
		logger:       logger,
	}
}

// SetTransactionTimeout sets after how long a pending transaction counts as timed out
func (sm *SequenceManager) SetTransactionTimeout(timeout time.Duration) {
	sm.txTimeout = timeout
}

// SetSyncInterval sets how often the sequence is re-read from the chain
func (sm *SequenceManager) SetSyncInterval(interval time.Duration) {
	sm.syncInterval = interval
}

func (sm *SequenceManager) account(address string) *accountSequence {
	sm.mu.RLock()
	acc, exists := sm.accounts[address]
	sm.mu.RUnlock()
	if exists {
		return acc
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if acc, exists = sm.accounts[address]; !exists {
		acc = &accountSequence{
			slot:       make(chan struct{}, 1),
			pendingTxs: make(map[uint64]*TransactionRecord),
		}
		sm.accounts[address] = acc
	}
	return acc
}

// Reserve waits for the account to be free and returns the sequence to sign with.
// The caller must finish the reservation with Commit or Abort.
func (sm *SequenceManager) Reserve(ctx context.Context, address string, fetcher AccountFetcher) (*Reservation, error) {
	acc := sm.account(address)

	select {
	case acc.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for account %s: %w", address, ctx.Err())
	}

	acc.mu.Lock()
	needsSync := acc.stale || acc.lastSync.IsZero() || time.Since(acc.lastSync) > sm.syncInterval
	acc.mu.Unlock()

	if needsSync {
		if err := sm.sync(ctx, address, acc, fetcher); err != nil {
			<-acc.slot
			return nil, err
		}
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return &Reservation{
		Address:       address,
		AccountNumber: acc.accountNumber,
		Sequence:      acc.sequence,
		manager:       sm,
		account:       acc,
	}, nil
}

func (sm *SequenceManager) sync(ctx context.Context, address string, acc *accountSequence, fetcher AccountFetcher) error {
	account, err := fetcher.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to sync sequence: %w", err)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.accountNumber = account.AccountNumber
	switch {
	case acc.stale:
		if account.Sequence != acc.sequence {
			sm.logger.Info("Resetting sequence for %s: %d -> %d", address, acc.sequence, account.Sequence)
		}
		acc.sequence = account.Sequence
		acc.stale = false
	case account.Sequence > acc.sequence:
		sm.logger.Debug("Updating sequence for %s: %d -> %d", address, acc.sequence, account.Sequence)
		acc.sequence = account.Sequence
	}
	acc.lastSync = time.Now()
	return nil
}

// Commit consumes the reserved sequence for the broadcast transaction txHash
func (r *Reservation) Commit(txHash string) {
	r.once.Do(func() {
		acc := r.account
		acc.mu.Lock()
		now := time.Now()
		acc.pendingTxs[r.Sequence] = &TransactionRecord{
			Hash:      txHash,
			Sequence:  r.Sequence,
			CreatedAt: now,
			UpdatedAt: now,
			Status:    TxPending,
		}
		acc.sequence = r.Sequence + 1
		acc.mu.Unlock()

		r.manager.logger.Debug("Tracking tx %s for %s with sequence %d", txHash, r.Address, r.Sequence)
		<-acc.slot
	})
}

// Abort releases the reservation without consuming the sequence.
// With resync the next reservation re-reads the sequence from the chain.
func (r *Reservation) Abort(resync bool) {
	r.once.Do(func() {
		if resync {
			r.account.mu.Lock()
			r.account.stale = true
			r.account.mu.Unlock()
		}
		<-r.account.slot
	})
}

// MarkTransactionConfirmed removes an included transaction from tracking
func (sm *SequenceManager) MarkTransactionConfirmed(address string, sequence uint64) bool {
	acc := sm.account(address)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	tx, exists := acc.pendingTxs[sequence]
	if !exists {
		sm.logger.Debug("No pending transaction for %s with sequence %d", address, sequence)
		return false
	}
	tx.Status = TxConfirmed
	tx.UpdatedAt = time.Now()
	delete(acc.pendingTxs, sequence)
	return true
}

// FindTimeoutTransactions returns the sequences of transactions pending longer than the timeout.
// A timeout marks the account for resync since the mempool may have dropped the transaction.
func (sm *SequenceManager) FindTimeoutTransactions(address string) []uint64 {
	acc := sm.account(address)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	now := time.Now()
	var timedOut []uint64
	for seq, tx := range acc.pendingTxs {
		if tx.Status == TxPending && now.Sub(tx.CreatedAt) > sm.txTimeout {
			tx.Status = TxTimedOut
			tx.UpdatedAt = now
			sm.logger.Error("Transaction timed out for %s, sequence %d: %s", address, seq, tx.Hash)
			timedOut = append(timedOut, seq)
			delete(acc.pendingTxs, seq)
		}
	}
	if len(timedOut) > 0 {
		acc.stale = true
	}
	return timedOut
}

// GetPendingTransactionsCount returns the number of broadcast but unconfirmed transactions
func (sm *SequenceManager) GetPendingTransactionsCount(address string) int {
	acc := sm.account(address)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return len(acc.pendingTxs)
}

// CurrentSequence returns the next sequence the manager will hand out for address
func (sm *SequenceManager) CurrentSequence(address string) uint64 {
	acc := sm.account(address)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.sequence
}
