package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Order is a Go Fast transfer order as carried in a fill instruction's origin data
type Order struct {
	ID                common.Hash  `json:"id"`
	Sender            [32]byte     `json:"sender"`
	Recipient         [32]byte     `json:"recipient"`
	AmountIn          *uint256.Int `json:"amount_in"`
	AmountOut         *uint256.Int `json:"amount_out"`
	Nonce             uint32       `json:"nonce"`
	SourceDomain      uint32       `json:"source_domain"`
	DestinationDomain uint32       `json:"destination_domain"`
	TimeoutTimestamp  uint64       `json:"timeout_timestamp"`
	Data              []byte       `json:"data,omitempty"`
}

// Output is a payment leg on a given chain
type Output struct {
	Token     [32]byte `json:"token"`
	Amount    *big.Int `json:"amount"`
	Recipient [32]byte `json:"recipient"`
	ChainID   *big.Int `json:"chain_id"`

	// Denom is the destination-chain asset the token maps to, set by the resolver
	Denom string `json:"denom,omitempty"`
}

// FillInstruction tells the filler where and with what payload to fill
type FillInstruction struct {
	DestinationChainID uint64   `json:"destination_chain_id"`
	DestinationSettler [32]byte `json:"destination_settler"`
	OriginData         []byte   `json:"origin_data"`
}

// ResolvedOrder is the decoded form of an Open event
type ResolvedOrder struct {
	OrderID          common.Hash       `json:"order_id"`
	User             [32]byte          `json:"user"`
	OriginChainID    *big.Int          `json:"origin_chain_id"`
	OpenDeadline     uint32            `json:"open_deadline"`
	FillDeadline     uint32            `json:"fill_deadline"`
	MaxSpent         []Output          `json:"max_spent"`
	MinReceived      []Output          `json:"min_received"`
	FillInstructions []FillInstruction `json:"fill_instructions"`

	// Order is set when the origin data decodes as a Go Fast order
	Order *Order `json:"order,omitempty"`

	BlockNumber uint64      `json:"block_number"`
	TxHash      common.Hash `json:"tx_hash"`
}

// FillInstruction returns the single fill instruction of the order
func (r *ResolvedOrder) FillInstruction() FillInstruction {
	return r.FillInstructions[0]
}

// OriginChain returns the origin chain id as an int for logging and metrics labels
func (r *ResolvedOrder) OriginChain() int {
	if r.OriginChainID == nil || !r.OriginChainID.IsInt64() {
		return 0
	}
	return int(r.OriginChainID.Int64())
}
