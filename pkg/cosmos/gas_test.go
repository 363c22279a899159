package cosmos

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGasPrice(t *testing.T) {
	tests := []struct {
		input     string
		wantDenom string
		wantAmt   string
		wantErr   bool
	}{
		{input: "0.025uosmo", wantDenom: "uosmo", wantAmt: "0.025"},
		{input: "1untrn", wantDenom: "untrn", wantAmt: "1"},
		{input: "0.0053ibc/B559A80D62249C8AA07A380E2A2BEA6E5CA9A6F079C912C3A9E9B494105E4F81", wantDenom: "ibc/B559A80D62249C8AA07A380E2A2BEA6E5CA9A6F079C912C3A9E9B494105E4F81", wantAmt: "0.0053"},
		{input: "uosmo", wantErr: true},
		{input: "0.025", wantErr: true},
		{input: "-1uosmo", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			price, err := ParseGasPrice(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDenom, price.Denom)
			assert.Equal(t, tt.wantAmt, price.Amount.String())
		})
	}
}

func TestGasLimit(t *testing.T) {
	assert.Equal(t, uint64(300_000), GasLimit(200_000, 1.5))
	assert.Equal(t, uint64(2), GasLimit(1, 1.5))
	assert.Equal(t, uint64(150_002), GasLimit(100_001, 1.5))
	assert.Equal(t, uint64(0), GasLimit(0, 1.5))
	assert.Equal(t, uint64(123_456), GasLimit(123_456, 1))
}

func TestCalculateFee(t *testing.T) {
	price, err := ParseGasPrice("0.025uosmo")
	require.NoError(t, err)

	fee := CalculateFee(300_000, price)
	assert.Equal(t, uint64(300_000), fee.GasLimit)
	require.Len(t, fee.Amount, 1)
	assert.Equal(t, "uosmo", fee.Amount[0].Denom)
	assert.True(t, fee.Amount[0].Amount.Equal(math.NewInt(7_500)))

	fee = CalculateFee(300_001, price)
	assert.True(t, fee.Amount[0].Amount.Equal(math.NewInt(7_501)))

	otherPrice, err := ParseGasPrice("1untrn")
	require.NoError(t, err)
	assert.Equal(t, GasLimit(200_000, DefaultGasMultiplier), CalculateFee(GasLimit(200_000, DefaultGasMultiplier), otherPrice).GasLimit)
}
