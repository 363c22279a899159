package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/relayer/testutil"
)

const solver = "osmo1solver"

type failingQuerier struct{}

func (failingQuerier) GetBalance(context.Context, string, string) (math.Int, error) {
	return math.Int{}, errors.New("connection refused")
}

func output(denom string, amount int64) models.Output {
	return models.Output{Denom: denom, Amount: big.NewInt(amount), ChainID: big.NewInt(chains.OsmosisDomain)}
}

func TestValidateSufficient(t *testing.T) {
	chain := testutil.NewFakeChain("osmosis-1")
	chain.SetBalance(solver, chains.OsmosisUSDCDenom, 5_000_000)

	v := NewValidator(chain, solver)
	require.NoError(t, v.Validate(context.Background(), []models.Output{output(chains.OsmosisUSDCDenom, 5_000_000)}))
}

func TestValidateInsufficient(t *testing.T) {
	chain := testutil.NewFakeChain("osmosis-1")
	chain.SetBalance(solver, chains.OsmosisUSDCDenom, 4_000_000)

	v := NewValidator(chain, solver)
	err := v.Validate(context.Background(), []models.Output{output(chains.OsmosisUSDCDenom, 5_000_000)})

	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, chains.OsmosisUSDCDenom, balanceErr.Denom)
	assert.True(t, balanceErr.Required.Equal(math.NewInt(5_000_000)))
	assert.True(t, balanceErr.Available.Equal(math.NewInt(4_000_000)))
	assert.Contains(t, err.Error(), "required 5000000, available 4000000")
}

func TestValidateSumsPerDenom(t *testing.T) {
	chain := testutil.NewFakeChain("osmosis-1")
	chain.SetBalance(solver, "uosmo", 150)

	v := NewValidator(chain, solver)
	outputs := []models.Output{output("uosmo", 100), output("uosmo", 60)}

	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, v.Validate(context.Background(), outputs), &balanceErr)
	assert.True(t, balanceErr.Required.Equal(math.NewInt(160)))
}

func TestValidateFailsFast(t *testing.T) {
	chain := testutil.NewFakeChain("osmosis-1")
	chain.SetBalance(solver, "ufirst", 1)
	chain.SetBalance(solver, "usecond", 0)

	v := NewValidator(chain, solver)
	outputs := []models.Output{output("ufirst", 10), output("usecond", 10)}

	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, v.Validate(context.Background(), outputs), &balanceErr)
	assert.Equal(t, "ufirst", balanceErr.Denom)
}

func TestValidateQueryError(t *testing.T) {
	v := NewValidator(failingQuerier{}, solver)
	err := v.Validate(context.Background(), []models.Output{output("uosmo", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	var balanceErr *InsufficientBalanceError
	assert.False(t, errors.As(err, &balanceErr))
}

func TestValidateOverflowingLegs(t *testing.T) {
	half := new(big.Int).Lsh(big.NewInt(1), 255)
	outputs := []models.Output{
		{Denom: "uusdc", Amount: half, ChainID: big.NewInt(chains.OsmosisDomain)},
		{Denom: "uusdc", Amount: new(big.Int).Set(half), ChainID: big.NewInt(chains.OsmosisDomain)},
	}

	v := NewValidator(failingQuerier{}, solver)
	var err error
	require.NotPanics(t, func() {
		err = v.Validate(context.Background(), outputs)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cosmos.ErrAmountOverflow)

	_, _, err = Required([]models.Output{{Denom: "uusdc", Amount: new(big.Int).Lsh(big.NewInt(1), 256)}})
	assert.ErrorIs(t, err, cosmos.ErrAmountOverflow)
}

func TestRequired(t *testing.T) {
	denoms, totals, err := Required([]models.Output{
		output("ub", 1), output("ua", 2), output("ub", 3),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ub", "ua"}, denoms)
	assert.True(t, totals["ub"].Equal(math.NewInt(4)))
	assert.True(t, totals["ua"].Equal(math.NewInt(2)))

	_, _, err = Required([]models.Output{{Amount: big.NewInt(1)}})
	assert.Error(t, err, "missing denom")

	_, _, err = Required([]models.Output{output("ua", -1)})
	assert.Error(t, err, "negative amount")
}
