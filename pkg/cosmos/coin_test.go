package cosmos

import (
	"encoding/json"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCoins(t *testing.T) {
	seven, err := NewCoin("uusdc", big.NewInt(7))
	require.NoError(t, err)
	merged, err := MergeCoins(
		NewInt64Coin("uusdc", 5),
		NewInt64Coin("uosmo", 1),
		seven,
	)
	require.NoError(t, err)

	require.Len(t, merged, 2)
	assert.Equal(t, "uusdc", merged[0].Denom)
	assert.True(t, merged[0].Amount.Equal(math.NewInt(12)))
	assert.Equal(t, "uosmo", merged[1].Denom)
	assert.True(t, merged.AmountOf("uosmo").Equal(math.NewInt(1)))
	assert.True(t, merged.AmountOf("missing").IsZero())
	assert.Equal(t, "12uusdc,1uosmo", merged.String())
}

func TestMergeCoinsOverflow(t *testing.T) {
	half := new(big.Int).Lsh(big.NewInt(1), 255)
	a, err := NewCoin("uusdc", half)
	require.NoError(t, err)
	b, err := NewCoin("uusdc", half)
	require.NoError(t, err)

	_, err = MergeCoins(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestNewCoinRejectsWideAmounts(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	c, err := NewCoin("uusdc", max)
	require.NoError(t, err)
	assert.Equal(t, 256, c.Amount.BigInt().BitLen())

	_, err = NewCoin("uusdc", new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = NewCoin("uusdc", nil)
	assert.Error(t, err)
}

func TestCoinValidate(t *testing.T) {
	assert.NoError(t, NewInt64Coin("uusdc", 0).Validate())
	assert.Error(t, NewInt64Coin("", 1).Validate())
	assert.Error(t, NewInt64Coin("uusdc", -1).Validate())
	assert.Error(t, Coin{Denom: "uusdc"}.Validate())
	assert.Error(t, Coins{NewInt64Coin("a", 1), NewInt64Coin("b", -2)}.Validate())
}

func TestCoinJSON(t *testing.T) {
	raw, err := json.Marshal(NewInt64Coin("ibc/ABC", 5_000_000))
	require.NoError(t, err)
	assert.JSONEq(t, `{"denom":"ibc/ABC","amount":"5000000"}`, string(raw))
}

func TestParseCoin(t *testing.T) {
	coin, err := ParseCoin("270000ibc/773B4D0A3CD667B2275D5A4A7A2F0909C0BA0F4059C0B9181E680DDF4965DCC7")
	require.NoError(t, err)
	assert.Equal(t, "ibc/773B4D0A3CD667B2275D5A4A7A2F0909C0BA0F4059C0B9181E680DDF4965DCC7", coin.Denom)
	assert.True(t, coin.Amount.Equal(math.NewInt(270000)))

	for _, bad := range []string{"", "uosmo", "1.5uosmo", "-1uosmo", "100"} {
		_, err := ParseCoin(bad)
		assert.Error(t, err, bad)
	}
}
