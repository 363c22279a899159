// Package resolver turns raw Open logs into resolved orders.
package resolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/contracts"
	"github.com/speedrun-hq/gofast-relayer/pkg/gofast"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Resolver decodes Open logs. It holds no mutable state of its own.
type Resolver struct {
	parser       *contracts.GoFast7683Filterer
	assets       *chains.AssetTable
	textFallback bool
}

// New creates a resolver mapping tokens through assets.
// With textFallback, unmapped tokens holding zero-padded text are read as the denom itself.
func New(assets *chains.AssetTable, textFallback bool) (*Resolver, error) {
	if assets == nil {
		return nil, fmt.Errorf("resolver requires an asset table")
	}
	// parsing never touches the backend
	parser, err := contracts.NewGoFast7683Filterer(common.Address{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to bind Open event parser: %w", err)
	}
	return &Resolver{
		parser:       parser,
		assets:       assets,
		textFallback: textFallback,
	}, nil
}

// Decode resolves a raw log into an order
func (r *Resolver) Decode(log types.Log) (*models.ResolvedOrder, error) {
	if len(log.Topics) == 0 || log.Topics[0] != contracts.OpenEventID() {
		return nil, &DecodeError{Kind: UnexpectedEvent, Err: contracts.ErrEventSignatureMismatch}
	}

	ev, err := r.parser.ParseOpen(log)
	if err != nil {
		if errors.Is(err, contracts.ErrEventSignatureMismatch) {
			return nil, &DecodeError{Kind: UnexpectedEvent, Err: err}
		}
		return nil, &DecodeError{Kind: MalformedPayload, Err: err}
	}

	raw := ev.ResolvedOrder
	if n := len(raw.FillInstructions); n != 1 {
		return nil, &UnsupportedTopologyError{Count: n}
	}

	resolved := &models.ResolvedOrder{
		OrderID:       common.Hash(ev.OrderId),
		User:          translate.EVMAddressToBytes32(raw.User),
		OriginChainID: raw.OriginChainId,
		OpenDeadline:  raw.OpenDeadline,
		FillDeadline:  raw.FillDeadline,
		BlockNumber:   log.BlockNumber,
		TxHash:        log.TxHash,
	}

	for _, out := range raw.MaxSpent {
		o, err := r.resolveOutput(out, true)
		if err != nil {
			return nil, err
		}
		resolved.MaxSpent = append(resolved.MaxSpent, o)
	}
	for _, out := range raw.MinReceived {
		// min received describes the source leg, usually not a destination asset
		o, _ := r.resolveOutput(out, false)
		resolved.MinReceived = append(resolved.MinReceived, o)
	}

	fi := raw.FillInstructions[0]
	resolved.FillInstructions = []models.FillInstruction{{
		DestinationChainID: fi.DestinationChainId,
		DestinationSettler: fi.DestinationSettler,
		OriginData:         append([]byte(nil), fi.OriginData...),
	}}

	if len(fi.OriginData) >= gofast.HeaderLength {
		order, err := gofast.DecodeOrder(fi.OriginData)
		if err != nil {
			return nil, &DecodeError{Kind: MalformedPayload, Err: fmt.Errorf("origin data: %w", err)}
		}
		if order.ID != resolved.OrderID {
			return nil, &DecodeError{
				Kind: MalformedPayload,
				Err:  fmt.Errorf("origin data hashes to %s, event order id is %s", order.ID.Hex(), resolved.OrderID.Hex()),
			}
		}
		resolved.Order = order
	}

	return resolved, nil
}

func (r *Resolver) resolveOutput(out contracts.Output, required bool) (models.Output, error) {
	o := models.Output{
		Token:     out.Token,
		Amount:    out.Amount,
		Recipient: out.Recipient,
		ChainID:   out.ChainId,
	}

	var domain uint64
	if out.ChainId != nil && out.ChainId.IsUint64() {
		domain = out.ChainId.Uint64()
	}
	if domain <= math.MaxUint32 {
		if denom, ok := r.assets.Lookup(out.Token, uint32(domain)); ok {
			o.Denom = denom
			return o, nil
		}
	}
	if r.textFallback {
		if denom, ok := translate.Bytes32ToText(out.Token); ok {
			o.Denom = denom
			return o, nil
		}
	}
	if required {
		return o, &UnknownAssetError{Token: out.Token, Domain: domain}
	}
	return o, nil
}
