// Package balance checks solver liquidity on the destination chain before a fill is attempted.
package balance

import (
	"context"
	"fmt"

	"cosmossdk.io/math"

	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

// Querier reads a single balance on the destination chain
type Querier interface {
	GetBalance(ctx context.Context, address, denom string) (math.Int, error)
}

// InsufficientBalanceError is returned for the first denom the solver cannot cover
type InsufficientBalanceError struct {
	Denom     string
	Required  math.Int
	Available math.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance of %s: required %s, available %s", e.Denom, e.Required, e.Available)
}

// Validator compares required outputs to the solver's balances. The check is advisory:
// balances may change between validation and broadcast.
type Validator struct {
	querier Querier
	solver  string
}

// NewValidator creates a validator for the solver address
func NewValidator(querier Querier, solver string) *Validator {
	return &Validator{querier: querier, solver: solver}
}

// Required sums outputs per denom, keeping first-seen order
func Required(outputs []models.Output) ([]string, map[string]math.Int, error) {
	var order []string
	totals := make(map[string]math.Int)
	for _, out := range outputs {
		if out.Denom == "" {
			return nil, nil, fmt.Errorf("output for token %x has no destination denom", out.Token)
		}
		if out.Amount == nil || out.Amount.Sign() < 0 {
			return nil, nil, fmt.Errorf("output of %s has an invalid amount", out.Denom)
		}
		amount, err := cosmos.IntFromBig(out.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("output of %s: %w", out.Denom, err)
		}
		if prev, ok := totals[out.Denom]; ok {
			sum, err := prev.SafeAdd(amount)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: total of %s", cosmos.ErrAmountOverflow, out.Denom)
			}
			totals[out.Denom] = sum
			continue
		}
		order = append(order, out.Denom)
		totals[out.Denom] = amount
	}
	return order, totals, nil
}

// Validate fails fast with InsufficientBalanceError on the first short denom
func (v *Validator) Validate(ctx context.Context, outputs []models.Output) error {
	denoms, totals, err := Required(outputs)
	if err != nil {
		return err
	}

	for _, denom := range denoms {
		available, err := v.querier.GetBalance(ctx, v.solver, denom)
		if err != nil {
			return fmt.Errorf("failed to query balance of %s: %w", denom, err)
		}
		required := totals[denom]
		if available.LT(required) {
			return &InsufficientBalanceError{Denom: denom, Required: required, Available: available}
		}
	}
	return nil
}
