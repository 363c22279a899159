package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/contracts"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/relayer/testutil"
)

var mailbox = common.HexToAddress("0x979Ca5202784112f4738403dBec5D0F3B9daabB9")

type collector struct {
	mu   sync.Mutex
	logs []types.Log
	fail func(types.Log) error
}

func (c *collector) handle(_ context.Context, log types.Log) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
	if c.fail != nil {
		return c.fail(log)
	}
	return nil
}

func (c *collector) blocks() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.logs))
	for i, log := range c.logs {
		out[i] = log.BlockNumber
	}
	return out
}

func (c *collector) has(block uint64) bool {
	for _, b := range c.blocks() {
		if b == block {
			return true
		}
	}
	return false
}

func openLog(nonce uint32, block uint64, index uint) types.Log {
	return testutil.MustOpenLog(testutil.OpenParams{
		Order:       testutil.NewOrder(nonce, 1_000),
		BlockNumber: block,
		LogIndex:    index,
	})
}

func openConfig() Config {
	return Config{
		ChainID:       42161,
		Address:       testutil.SettlerAddress,
		Topics:        [][]common.Hash{{contracts.OpenEventID()}},
		MaxBlockRange: 10,
		PollInterval:  10 * time.Millisecond,
	}
}

func TestScanRangeOrderAndChunks(t *testing.T) {
	source := testutil.NewFakeSource(100)
	removed := openLog(4, 7, 0)
	removed.Removed = true
	source.AddLogs(
		openLog(1, 25, 0),
		openLog(2, 3, 1),
		openLog(3, 3, 0),
		removed,
		openLog(5, 12, 0),
	)
	// not the watched contract
	other := openLog(6, 5, 0)
	other.Address = common.HexToAddress("0x01")
	source.AddLogs(other)

	w := New(source, openConfig(), &logger.EmptyLogger{})
	c := &collector{}

	last, err := w.ScanRange(context.Background(), 1, 25, c.handle)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), last)
	assert.Equal(t, 3, source.QueryCount(), "1-10, 11-20, 21-25")
	assert.Equal(t, []uint64{3, 3, 12, 25}, c.blocks())
	assert.Equal(t, uint(0), c.logs[0].Index)
	assert.Equal(t, uint(1), c.logs[1].Index)
	assert.Equal(t, uint64(4), w.Delivered())
}

func TestScanRangeContinuesAfterHandlerError(t *testing.T) {
	source := testutil.NewFakeSource(100)
	source.AddLogs(openLog(1, 2, 0), openLog(2, 4, 0))

	w := New(source, openConfig(), &logger.EmptyLogger{})
	c := &collector{fail: func(log types.Log) error {
		if log.BlockNumber == 2 {
			return errors.New("malformed")
		}
		return nil
	}}

	last, err := w.ScanRange(context.Background(), 1, 5, c.handle)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)
	assert.Equal(t, []uint64{2, 4}, c.blocks())
	assert.Equal(t, uint64(1), w.HandlerErrors())
}

func TestScanRangeIndexedFilter(t *testing.T) {
	wanted := common.HexToHash("0x01")
	source := testutil.NewFakeSource(100)
	source.AddLogs(
		testutil.ProcessIdLog(mailbox, common.HexToHash("0x02"), 5),
		testutil.ProcessIdLog(mailbox, wanted, 8),
	)

	w := New(source, Config{
		Address: mailbox,
		Topics:  [][]common.Hash{{contracts.ProcessIdEventID()}, {wanted}},
	}, &logger.EmptyLogger{})
	c := &collector{}

	_, err := w.ScanRange(context.Background(), 1, 100, c.handle)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8}, c.blocks())
}

func TestScanRangeStopsOnCancel(t *testing.T) {
	source := testutil.NewFakeSource(100)
	source.AddLogs(openLog(1, 2, 0), openLog(2, 3, 0), openLog(3, 4, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(source, openConfig(), &logger.EmptyLogger{})
	c := &collector{fail: func(types.Log) error {
		cancel()
		return nil
	}}

	last, err := w.ScanRange(ctx, 1, 10, c.handle)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), last)
	assert.Len(t, c.blocks(), 1)
}

func TestScanRangeFilterError(t *testing.T) {
	source := testutil.NewFakeSource(100)
	source.SetFilterErr(errors.New("connection refused"))

	w := New(source, openConfig(), &logger.EmptyLogger{})
	last, err := w.ScanRange(context.Background(), 11, 30, (&collector{}).handle)
	require.Error(t, err)
	assert.Equal(t, uint64(10), last)
}

func TestRunPolling(t *testing.T) {
	source := testutil.NewFakeSource(10)
	source.AddLogs(openLog(1, 3, 0), openLog(2, 9, 0))

	cfg := openConfig()
	cfg.StartBlock = 1
	cfg.ConfirmationBlocks = 2
	cfg.Subscribe = true // the fake reports notifications as unsupported

	w := New(source, cfg, &logger.EmptyLogger{})
	c := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c.handle) }()

	testutil.Eventually(t, func() bool { return c.has(3) })
	testutil.Eventually(t, func() bool { return w.LastBlock() == 8 })
	assert.True(t, w.IsRunning())
	assert.False(t, c.has(9), "block 9 is not confirmed yet")

	source.SetHead(11)
	testutil.Eventually(t, func() bool { return c.has(9) })
	testutil.Eventually(t, func() bool { return w.LastBlock() == 9 })

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testutil.DefaultTestTimeout):
		t.Fatal("Run did not return after cancellation")
	}
	assert.False(t, w.IsRunning())
	assert.Equal(t, []uint64{3, 9}, c.blocks())
}

func TestRunRecoversFromFilterErrors(t *testing.T) {
	source := testutil.NewFakeSource(20)
	source.AddLogs(openLog(1, 15, 0))
	source.SetFilterErr(errors.New("connection refused"))

	cfg := openConfig()
	cfg.StartBlock = 10
	w := New(source, cfg, &logger.EmptyLogger{})
	c := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, c.handle) }()

	testutil.Eventually(t, func() bool { return source.QueryCount() >= 2 })
	assert.Empty(t, c.blocks())

	source.SetFilterErr(nil)
	testutil.Eventually(t, func() bool { return c.has(15) })
}

func TestRunSubscription(t *testing.T) {
	source := testutil.NewFakeSource(50)
	source.SubscriptionsEnabled = true

	cfg := openConfig()
	cfg.Subscribe = true
	cfg.PollInterval = time.Hour
	w := New(source, cfg, &logger.EmptyLogger{})
	c := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c.handle) }()

	testutil.Eventually(t, func() bool { return w.LastBlock() == 50 })

	source.Emit(openLog(1, 51, 0))
	testutil.Eventually(t, func() bool { return c.has(51) })

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testutil.DefaultTestTimeout):
		t.Fatal("Run did not return after cancellation")
	}
}
