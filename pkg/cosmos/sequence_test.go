package cosmos

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
)

type fakeAccounts struct {
	mu       sync.Mutex
	sequence uint64
	calls    int
	err      error
}

func (f *fakeAccounts) GetAccount(_ context.Context, address string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Account{Address: address, AccountNumber: 9, Sequence: f.sequence}, nil
}

func TestSequenceManagerReserveCommit(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	chain := &fakeAccounts{sequence: 10}
	ctx := context.Background()

	res, err := sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), res.AccountNumber)
	assert.Equal(t, uint64(10), res.Sequence)
	res.Commit("HASH1")
	res.Commit("ignored")

	res, err = sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Sequence)
	res.Abort(false)

	res, err = sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Sequence, "abort must not consume the sequence")
	res.Abort(false)

	assert.Equal(t, 1, chain.calls, "sequence is synced once until stale")
	assert.Equal(t, 1, sm.GetPendingTransactionsCount("osmo1solver"))
	assert.True(t, sm.MarkTransactionConfirmed("osmo1solver", 10))
	assert.False(t, sm.MarkTransactionConfirmed("osmo1solver", 10))
	assert.Equal(t, 0, sm.GetPendingTransactionsCount("osmo1solver"))
}

func TestSequenceManagerResyncAfterAbort(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	chain := &fakeAccounts{sequence: 10}
	ctx := context.Background()

	res, err := sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	res.Commit("HASH1")

	// the broadcast tx was dropped, the chain is still at 10
	res, err = sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Sequence)
	res.Abort(true)

	res, err = sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), res.Sequence)
	res.Abort(false)
	assert.Equal(t, 2, chain.calls)
}

func TestSequenceManagerSerialisesAccount(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	chain := &fakeAccounts{sequence: 0}
	ctx := context.Background()

	const workers = 20
	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	seen := make(chan uint64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := sm.Reserve(ctx, "osmo1solver", chain)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			seen <- res.Sequence
			atomic.AddInt32(&inFlight, -1)
			res.Commit("HASH")
		}()
	}
	wg.Wait()
	close(seen)

	assert.EqualValues(t, 1, maxInFlight)
	sequences := make(map[uint64]bool)
	for seq := range seen {
		sequences[seq] = true
	}
	assert.Len(t, sequences, workers, "every reservation gets a distinct sequence")
	assert.Equal(t, uint64(workers), sm.CurrentSequence("osmo1solver"))
}

func TestSequenceManagerReserveHonoursContext(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	chain := &fakeAccounts{}

	held, err := sm.Reserve(context.Background(), "osmo1solver", chain)
	require.NoError(t, err)
	defer held.Abort(false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sm.Reserve(ctx, "osmo1solver", chain)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// a different account is not blocked
	other, err := sm.Reserve(context.Background(), "osmo1other", chain)
	require.NoError(t, err)
	other.Abort(false)
}

func TestSequenceManagerSyncFailureReleasesSlot(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	chain := &fakeAccounts{err: errors.New("connection refused")}

	_, err := sm.Reserve(context.Background(), "osmo1solver", chain)
	require.Error(t, err)

	chain.mu.Lock()
	chain.err = nil
	chain.sequence = 3
	chain.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := sm.Reserve(ctx, "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Sequence)
	res.Abort(false)
}

func TestSequenceManagerTimeouts(t *testing.T) {
	sm := NewSequenceManager(&logger.EmptyLogger{})
	sm.SetTransactionTimeout(10 * time.Millisecond)
	chain := &fakeAccounts{sequence: 5}

	res, err := sm.Reserve(context.Background(), "osmo1solver", chain)
	require.NoError(t, err)
	res.Commit("HASH")

	assert.Empty(t, sm.FindTimeoutTransactions("osmo1solver"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []uint64{5}, sm.FindTimeoutTransactions("osmo1solver"))
	assert.Equal(t, 0, sm.GetPendingTransactionsCount("osmo1solver"))

	res, err = sm.Reserve(context.Background(), "osmo1solver", chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.Sequence, "timeouts force a resync")
	res.Abort(false)
}
