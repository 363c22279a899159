package dedup

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

var orderID = common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")

func TestGuardLifecycle(t *testing.T) {
	g := NewGuard()

	require.True(t, g.TryBegin(orderID))
	assert.False(t, g.TryBegin(orderID), "pending order must not be granted twice")

	require.NoError(t, g.MarkSubmitted(orderID, "ABCDEF"))
	assert.False(t, g.TryBegin(orderID), "submitted order must not be granted")

	require.NoError(t, g.Commit(orderID, models.AttemptConfirmed, nil))
	assert.False(t, g.TryBegin(orderID), "confirmed order must not be granted")

	attempt, ok := g.Get(orderID)
	require.True(t, ok)
	assert.Equal(t, models.AttemptConfirmed, attempt.State)
	assert.Equal(t, "ABCDEF", attempt.TxHash)
	assert.Equal(t, 1, attempt.Attempts)
}

func TestGuardRetryAfterFailure(t *testing.T) {
	g := NewGuard()
	cause := errors.New("simulation failed")

	require.True(t, g.TryBegin(orderID))
	require.NoError(t, g.Commit(orderID, models.AttemptFailed, cause))

	attempt, _ := g.Get(orderID)
	assert.Equal(t, cause, attempt.Err)

	require.True(t, g.TryBegin(orderID), "failed order may be retried")
	attempt, _ = g.Get(orderID)
	assert.Equal(t, models.AttemptPending, attempt.State)
	assert.Nil(t, attempt.Err)
	assert.Equal(t, 2, attempt.Attempts)
}

func TestGuardRejectsInvalidTransitions(t *testing.T) {
	g := NewGuard()

	assert.Error(t, g.MarkSubmitted(orderID, "hash"), "unknown order")
	assert.Error(t, g.Commit(orderID, models.AttemptConfirmed, nil), "unknown order")

	require.True(t, g.TryBegin(orderID))
	assert.Error(t, g.Commit(orderID, models.AttemptSubmitted, nil), "non-terminal outcome")
	assert.Error(t, g.Commit(orderID, models.AttemptPending, nil), "non-terminal outcome")

	require.NoError(t, g.Commit(orderID, models.AttemptFailed, nil))
	assert.Error(t, g.Commit(orderID, models.AttemptConfirmed, nil), "already terminal")
	assert.Error(t, g.MarkSubmitted(orderID, "hash"), "terminal order")
}

func TestGuardCounts(t *testing.T) {
	g := NewGuard()
	ids := []common.Hash{{1}, {2}, {3}, {4}}
	for _, id := range ids {
		require.True(t, g.TryBegin(id))
	}
	require.NoError(t, g.MarkSubmitted(ids[1], "a"))
	require.NoError(t, g.Commit(ids[2], models.AttemptConfirmed, nil))
	require.NoError(t, g.Commit(ids[3], models.AttemptFailed, nil))

	assert.Equal(t, map[string]int{
		"pending":   1,
		"submitted": 1,
		"confirmed": 1,
		"failed":    1,
	}, g.Counts())
	assert.Equal(t, 4, g.Len())
}

func TestGuardConcurrentTryBegin(t *testing.T) {
	const callers = 64
	g := NewGuard()

	var granted int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryBegin(orderID) {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), granted)
}

func TestGuardConcurrentRetryRounds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping repeated concurrency rounds in short mode")
	}

	g := NewGuard()
	for round := 0; round < 20; round++ {
		var granted int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if g.TryBegin(orderID) {
					atomic.AddInt32(&granted, 1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), granted, "round %d", round)
		require.NoError(t, g.Commit(orderID, models.AttemptFailed, nil))
	}
}

func TestGuardResubmitKeepsLatestHash(t *testing.T) {
	g := NewGuard()
	orderID := common.HexToHash("0x0b")

	require.True(t, g.TryBegin(orderID))
	require.NoError(t, g.MarkSubmitted(orderID, "FIRST"))
	require.NoError(t, g.MarkSubmitted(orderID, "SECOND"))

	attempt, ok := g.Get(orderID)
	require.True(t, ok)
	assert.Equal(t, models.AttemptSubmitted, attempt.State)
	assert.Equal(t, "SECOND", attempt.TxHash)
	assert.Equal(t, 1, attempt.Attempts)
}
