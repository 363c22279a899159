package cosmos

import (
	"fmt"
	"regexp"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// DefaultGasMultiplier is the safety factor applied to simulated gas
const DefaultGasMultiplier = 1.5

var gasPriceRegexp = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([a-zA-Z][a-zA-Z0-9/:._-]{1,127})$`)

// GasPrice is a price per gas unit in a single denomination
type GasPrice struct {
	Amount decimal.Decimal
	Denom  string
}

// ParseGasPrice parses strings such as 0.025uosmo
func ParseGasPrice(s string) (GasPrice, error) {
	matches := gasPriceRegexp.FindStringSubmatch(s)
	if matches == nil {
		return GasPrice{}, fmt.Errorf("invalid gas price %q, expected <amount><denom>", s)
	}
	amount, err := decimal.NewFromString(matches[1])
	if err != nil {
		return GasPrice{}, fmt.Errorf("invalid gas price amount %q: %w", matches[1], err)
	}
	return GasPrice{Amount: amount, Denom: matches[2]}, nil
}

// String renders the gas price in its parseable form
func (p GasPrice) String() string {
	return p.Amount.String() + p.Denom
}

// Fee is the fee attached to a transaction
type Fee struct {
	Amount   Coins  `json:"amount"`
	GasLimit uint64 `json:"gas_limit,string"`
}

// GasLimit applies the multiplier to a simulated gas amount, rounding half away from zero
func GasLimit(simulated uint64, multiplier float64) uint64 {
	limit := decimal.NewFromInt(int64(simulated)).Mul(decimal.NewFromFloat(multiplier)).Round(0)
	return uint64(limit.IntPart())
}

// CalculateFee prices a gas limit, rounding the fee amount up
func CalculateFee(gasLimit uint64, price GasPrice) Fee {
	amount := decimal.NewFromInt(int64(gasLimit)).Mul(price.Amount).Ceil()
	return Fee{
		Amount:   Coins{{Denom: price.Denom, Amount: math.NewIntFromBigInt(amount.BigInt())}},
		GasLimit: gasLimit,
	}
}
