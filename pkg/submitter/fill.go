package submitter

import (
	"fmt"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/gofast"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/resolver"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Target describes the destination chain a fill is built for
type Target struct {
	Bech32Prefix string
	// Domain restricts funds to legs on this domain; zero takes every leg
	Domain uint32
}

// Fill is a built fill ready for Submit
type Fill struct {
	Contract string
	Dialect  chains.Dialect
	Msg      cosmos.ExecuteMsg
	Funds    cosmos.Coins
}

// BuildFill builds the execute message, destination contract and funds for an order
func BuildFill(order *models.ResolvedOrder, dialect chains.Dialect, filler string, target Target) (*Fill, error) {
	if order == nil {
		return nil, fmt.Errorf("nil order")
	}
	if len(order.FillInstructions) != 1 {
		return nil, &resolver.UnsupportedTopologyError{Count: len(order.FillInstructions)}
	}
	fi := order.FillInstruction()

	contract, err := translate.BytesToBech32(target.Bech32Prefix, fi.DestinationSettler[:])
	if err != nil {
		return nil, fmt.Errorf("invalid destination settler: %w", err)
	}

	funds, err := Funds(order.MaxSpent, target.Domain)
	if err != nil {
		return nil, err
	}

	var msg cosmos.ExecuteMsg
	switch dialect {
	case chains.DialectFill:
		msg = cosmos.FillMsg{
			OrderID:    translate.BytesToHex(order.OrderID[:]),
			OriginData: translate.BytesToBase64(fi.OriginData),
			FillerData: "",
		}
	case chains.DialectFillOrder:
		if order.Order == nil {
			return nil, &resolver.UnsupportedTopologyError{Count: 1, Reason: "fill_order requires a Go Fast order in the origin data"}
		}
		orderJSON, err := gofast.ToJSON(order.Order)
		if err != nil {
			return nil, err
		}
		msg = cosmos.FillOrderMsg{Filler: filler, Order: orderJSON}
	default:
		return nil, fmt.Errorf("unknown fill dialect %q", dialect)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return &Fill{Contract: contract, Dialect: dialect, Msg: msg, Funds: funds}, nil
}

// Legs returns the outputs paid on domain; zero takes every leg
func Legs(outputs []models.Output, domain uint32) []models.Output {
	if domain == 0 {
		return outputs
	}
	var legs []models.Output
	for _, out := range outputs {
		if out.ChainID != nil && out.ChainID.IsUint64() && out.ChainID.Uint64() == uint64(domain) {
			legs = append(legs, out)
		}
	}
	return legs
}

// Funds merges the MaxSpent legs on domain into coins. The total per denom equals the
// matched leg amounts exactly.
func Funds(outputs []models.Output, domain uint32) (cosmos.Coins, error) {
	var coins []cosmos.Coin
	for _, out := range Legs(outputs, domain) {
		if out.Denom == "" {
			return nil, &resolver.UnknownAssetError{Token: out.Token, Domain: uint64(domain)}
		}
		if out.Amount == nil || out.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("leg of %s has no positive amount", out.Denom)
		}
		coin, err := cosmos.NewCoin(out.Denom, out.Amount)
		if err != nil {
			return nil, err
		}
		coins = append(coins, coin)
	}
	if len(coins) == 0 {
		return nil, &resolver.UnsupportedTopologyError{Reason: fmt.Sprintf("no max spent leg on domain %d", domain)}
	}
	return cosmos.MergeCoins(coins...)
}
