package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/relayer/testutil"
	"github.com/speedrun-hq/gofast-relayer/pkg/submitter"
)

const (
	gateway   = "osmo1gateway"
	repayment = "00000000000000000000000056ca414d41cd3c1188a4939b0d56417da7bb6da2"
	hookFee   = "ibc/773B4D0A3CD667B2275D5A4A7A2F0909C0BA0F4059C0B9181E680DDF4965DCC7"
)

var messageID = common.HexToHash("0x5f0a7c3f7a1e44b09ad7b2b5e3e0e6c1d2a4b8c9e0f1a2b3c4d5e6f708192a3b")

type fixture struct {
	chain   *testutil.FakeChain
	settler *Settler
}

func newFixture(t *testing.T, tracker DeliveryChecker) *fixture {
	t.Helper()
	log := &logger.EmptyLogger{}
	gasPrice, err := cosmos.ParseGasPrice("0.025uosmo")
	require.NoError(t, err)

	chain := testutil.NewFakeChain("osmosis-1")
	chain.TxEvents = []cosmos.Event{{
		Type:       DispatchEventType,
		Attributes: []cosmos.EventAttribute{{Key: MessageIDKey, Value: messageID.Hex()[2:]}},
	}}
	sub := submitter.New(chain, testutil.NewFakeSigner(testutil.SolverAddress()), cosmos.NewSequenceManager(log), submitter.Config{
		ChainID:      "osmosis-1",
		Domain:       chains.OsmosisDomain,
		Bech32Prefix: "osmo",
		GasPrice:     gasPrice,
	}, log)

	return &fixture{
		chain: chain,
		settler: NewSettler(chain, sub, tracker, Config{
			ChainID:          chains.OsmosisDomain,
			Gateway:          gateway,
			RepaymentAddress: repayment,
			Fee:              cosmos.NewInt64Coin(hookFee, 270000),
			CheckInterval:    10 * time.Millisecond,
		}, log),
	}
}

func quoteHandler(amount string) testutil.QueryHandler {
	return func(contract string, query json.RawMessage) (interface{}, error) {
		return []map[string]string{{"denom": hookFee, "amount": amount}}, nil
	}
}

func TestSettle(t *testing.T) {
	f := newFixture(t, nil)
	f.chain.Query = quoteHandler("310000")
	ctx, cancel := testutil.SetupTestWithTimeout(t)
	defer cancel()

	orderID := common.HexToHash("0x23ff50a09046cabf27ebc1f5527f9540f149f80d4ae53112dc4414a0de646da8")
	settlement, err := f.settler.Settle(ctx, orderID, chains.ArbitrumDomain)
	require.NoError(t, err)

	assert.Equal(t, messageID, settlement.MessageID)
	assert.Equal(t, "310000"+hookFee, settlement.Fee.String())
	assert.NotEmpty(t, settlement.TxHash)

	require.Len(t, f.chain.Queries, 1)
	var query map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(f.chain.Queries[0], &query))
	quote := query["quote_initiate_settlement"]
	assert.Equal(t, []interface{}{orderID.Hex()[2:]}, quote["order_ids"])
	assert.Equal(t, repayment, quote["repayment_address"])
	assert.EqualValues(t, chains.ArbitrumDomain, quote["source_domain"])

	tx, ok := f.chain.LastBroadcast()
	require.True(t, ok)
	require.Len(t, tx.Messages, 1)
	assert.Equal(t, gateway, tx.Messages[0].Contract)
	assert.Equal(t, "310000"+hookFee, tx.Messages[0].Funds.String())

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(tx.Messages[0].Msg, &body))
	assert.Equal(t, orderID.Hex()[2:], body["initiate_settlement"]["order_id"])
	assert.Equal(t, repayment, body["initiate_settlement"]["repayment_address"])
}

func TestQuoteCachedPerDomain(t *testing.T) {
	f := newFixture(t, nil)
	f.chain.Query = quoteHandler("310000")
	ctx, cancel := testutil.SetupTestWithTimeout(t)
	defer cancel()

	first := f.settler.Quote(ctx, common.HexToHash("0x01"), chains.ArbitrumDomain)
	second := f.settler.Quote(ctx, common.HexToHash("0x02"), chains.ArbitrumDomain)
	assert.Equal(t, first, second)
	assert.Len(t, f.chain.Queries, 1)

	f.settler.Quote(ctx, common.HexToHash("0x03"), chains.BaseDomain)
	assert.Len(t, f.chain.Queries, 2)
}

func TestQuoteFallsBackToConfiguredFee(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := testutil.SetupTestWithTimeout(t)
	defer cancel()

	// no query handler: the gateway errors
	fee := f.settler.Quote(ctx, common.HexToHash("0x01"), chains.ArbitrumDomain)
	assert.Equal(t, "270000"+hookFee, fee.String())

	f.chain.Query = func(string, json.RawMessage) (interface{}, error) {
		return []interface{}{}, nil
	}
	fee = f.settler.Quote(ctx, common.HexToHash("0x01"), chains.ArbitrumDomain)
	assert.Equal(t, "270000"+hookFee, fee.String(), "an empty quote falls back")
}

func TestSettleSubmitError(t *testing.T) {
	f := newFixture(t, nil)
	f.chain.SimulateErr = errors.New("order not filled by sender: unauthorized")
	ctx, cancel := testutil.SetupTestWithTimeout(t)
	defer cancel()

	_, err := f.settler.Settle(ctx, common.HexToHash("0x01"), chains.ArbitrumDomain)
	var simErr *submitter.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, 0, f.chain.BroadcastCount())
}

type stubTracker struct {
	delivered chan common.Hash
}

func (s *stubTracker) Delivered(ctx context.Context, id common.Hash) (bool, error) {
	select {
	case s.delivered <- id:
	default:
	}
	return true, nil
}

func TestRunSettlesQueuedOrders(t *testing.T) {
	tracker := &stubTracker{delivered: make(chan common.Hash, 1)}
	f := newFixture(t, tracker)
	f.chain.Query = quoteHandler("310000")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.settler.Run(ctx) }()

	orderID := common.HexToHash("0x0a")
	require.True(t, f.settler.Enqueue(orderID, chains.ArbitrumDomain))

	select {
	case id := <-tracker.delivered:
		assert.Equal(t, messageID, id)
	case <-time.After(testutil.DefaultTestTimeout):
		t.Fatal("delivery was never checked")
	}
	testutil.Eventually(t, func() bool { return len(f.settler.Pending()) == 0 })
	assert.Equal(t, 1, f.chain.BroadcastCount())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testutil.DefaultTestTimeout):
		t.Fatal("Run did not return")
	}
}

type mapTracker map[common.Hash]bool

func (m mapTracker) Delivered(_ context.Context, id common.Hash) (bool, error) {
	return m[id], nil
}

func TestCheckDeliveryPrunes(t *testing.T) {
	delivered := common.HexToHash("0x01")
	waiting := common.HexToHash("0x02")
	stale := common.HexToHash("0x03")

	s := NewSettler(nil, nil, mapTracker{delivered: true}, Config{MaxAge: time.Hour}, &logger.EmptyLogger{})
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	s.track(&Settlement{OrderID: common.HexToHash("0x0c"), MessageID: stale})
	now = now.Add(2 * time.Hour)
	s.track(&Settlement{OrderID: common.HexToHash("0x0a"), MessageID: delivered})
	s.track(&Settlement{OrderID: common.HexToHash("0x0b"), MessageID: waiting})
	// nothing to look for without a message id
	s.track(&Settlement{OrderID: common.HexToHash("0x0d")})
	require.Len(t, s.Pending(), 3)

	s.CheckDelivery(context.Background())

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, waiting, pending[0].MessageID)

	now = now.Add(2 * time.Hour)
	s.CheckDelivery(context.Background())
	assert.Empty(t, s.Pending())
}

func TestTrackWithoutTracker(t *testing.T) {
	s := NewSettler(nil, nil, nil, Config{}, &logger.EmptyLogger{})
	s.track(&Settlement{MessageID: messageID})
	assert.Empty(t, s.Pending())
}

func TestEnqueueFull(t *testing.T) {
	log := &logger.EmptyLogger{}
	s := NewSettler(nil, nil, nil, Config{QueueSize: 1}, log)
	assert.True(t, s.Enqueue(common.HexToHash("0x01"), chains.ArbitrumDomain))
	assert.False(t, s.Enqueue(common.HexToHash("0x02"), chains.ArbitrumDomain))
}
