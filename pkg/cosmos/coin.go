// Package cosmos holds the destination chain boundary: coins, execute messages, fees, the REST client and account sequencing.
package cosmos

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"cosmossdk.io/math"
)

// Coin is an amount of a single denomination
type Coin struct {
	Denom  string   `json:"denom"`
	Amount math.Int `json:"amount"`
}

// ErrAmountOverflow is returned for amounts, or sums of amounts, wider than 256 bits
var ErrAmountOverflow = errors.New("amount exceeds 256 bits")

// IntFromBig converts amount without the panic math.NewIntFromBigInt raises past 256 bits
func IntFromBig(amount *big.Int) (math.Int, error) {
	if amount == nil {
		return math.Int{}, fmt.Errorf("nil amount")
	}
	if amount.BitLen() > math.MaxBitLen {
		return math.Int{}, fmt.Errorf("%w: %s", ErrAmountOverflow, amount)
	}
	return math.NewIntFromBigInt(new(big.Int).Set(amount)), nil
}

// NewCoin builds a coin from a big.Int amount
func NewCoin(denom string, amount *big.Int) (Coin, error) {
	a, err := IntFromBig(amount)
	if err != nil {
		return Coin{}, fmt.Errorf("coin %s: %w", denom, err)
	}
	return Coin{Denom: denom, Amount: a}, nil
}

// NewInt64Coin builds a coin from an int64 amount
func NewInt64Coin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: math.NewInt(amount)}
}

var coinRegexp = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]{1,127})$`)

// ParseCoin parses strings such as 270000uosmo or 5000000ibc/ABC
func ParseCoin(s string) (Coin, error) {
	matches := coinRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return Coin{}, fmt.Errorf("invalid coin %q, expected <amount><denom>", s)
	}
	amount, ok := math.NewIntFromString(matches[1])
	if !ok {
		return Coin{}, fmt.Errorf("invalid coin amount %q", matches[1])
	}
	return Coin{Denom: matches[2], Amount: amount}, nil
}

// String renders the coin as amount followed by denom, e.g. 5000000uusdc
func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// Validate checks the coin has a denom and a non-negative amount
func (c Coin) Validate() error {
	if c.Denom == "" {
		return fmt.Errorf("coin has an empty denom")
	}
	if c.Amount.IsNil() {
		return fmt.Errorf("coin %s has no amount", c.Denom)
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("coin %s has a negative amount", c.Denom)
	}
	return nil
}

// Coins is a list of coins
type Coins []Coin

// MergeCoins sums coins per denom, keeping the order in which each denom first appears
func MergeCoins(coins ...Coin) (Coins, error) {
	var out Coins
	index := make(map[string]int)
	for _, c := range coins {
		if i, ok := index[c.Denom]; ok {
			sum, err := out[i].Amount.SafeAdd(c.Amount)
			if err != nil {
				return nil, fmt.Errorf("%w: total of %s", ErrAmountOverflow, c.Denom)
			}
			out[i].Amount = sum
			continue
		}
		index[c.Denom] = len(out)
		out = append(out, c)
	}
	return out, nil
}

// AmountOf returns the amount of denom, zero if absent
func (cs Coins) AmountOf(denom string) math.Int {
	for _, c := range cs {
		if c.Denom == denom {
			return c.Amount
		}
	}
	return math.ZeroInt()
}

// Validate validates every coin in the list
func (cs Coins) Validate() error {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the coins comma separated
func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
