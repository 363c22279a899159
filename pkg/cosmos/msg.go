package cosmos

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/speedrun-hq/gofast-relayer/pkg/gofast"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// MsgExecuteContractTypeURL is the type URL of a CosmWasm execute message
const MsgExecuteContractTypeURL = "/cosmwasm.wasm.v1.MsgExecuteContract"

var hex32Regexp = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ExecuteMsg is a CosmWasm execute payload. The set of variants is closed.
type ExecuteMsg interface {
	// Key is the tag of the variant in the JSON object
	Key() string
	// Validate checks the payload before it is serialized
	Validate() error

	isExecuteMsg()
}

// FillMsg fills an order on a cw7683 settler
type FillMsg struct {
	OrderID    string `json:"order_id"`
	OriginData string `json:"origin_data"`
	FillerData string `json:"filler_data"`
}

// Key implements ExecuteMsg
func (FillMsg) Key() string { return "fill" }

// Validate implements ExecuteMsg
func (m FillMsg) Validate() error {
	if !hex32Regexp.MatchString(m.OrderID) {
		return fmt.Errorf("fill: order_id %q must be 32 bytes of unprefixed hex", m.OrderID)
	}
	if m.OriginData == "" {
		return fmt.Errorf("fill: origin_data is empty")
	}
	if _, err := translate.Base64ToBytes(m.OriginData); err != nil {
		return fmt.Errorf("fill: origin_data: %w", err)
	}
	return nil
}

func (FillMsg) isExecuteMsg() {}

// FillOrderMsg fills an order on a fast transfer gateway
type FillOrderMsg struct {
	Filler string           `json:"filler"`
	Order  gofast.OrderJSON `json:"order"`
}

// Key implements ExecuteMsg
func (FillOrderMsg) Key() string { return "fill_order" }

// Validate implements ExecuteMsg
func (m FillOrderMsg) Validate() error {
	if m.Filler == "" {
		return fmt.Errorf("fill_order: filler is empty")
	}
	if !hex32Regexp.MatchString(m.Order.Sender) || !hex32Regexp.MatchString(m.Order.Recipient) {
		return fmt.Errorf("fill_order: sender and recipient must be 32 bytes of unprefixed hex")
	}
	if m.Order.AmountIn == "" || m.Order.AmountOut == "" {
		return fmt.Errorf("fill_order: amounts are required")
	}
	return nil
}

func (FillOrderMsg) isExecuteMsg() {}

// InitiateSettlementMsg asks the gateway to settle a filled order back to the source chain
type InitiateSettlementMsg struct {
	OrderID          string `json:"order_id"`
	RepaymentAddress string `json:"repayment_address"`
}

// Key implements ExecuteMsg
func (InitiateSettlementMsg) Key() string { return "initiate_settlement" }

// Validate implements ExecuteMsg
func (m InitiateSettlementMsg) Validate() error {
	if !hex32Regexp.MatchString(m.OrderID) {
		return fmt.Errorf("initiate_settlement: order_id %q must be 32 bytes of unprefixed hex", m.OrderID)
	}
	if !hex32Regexp.MatchString(m.RepaymentAddress) {
		return fmt.Errorf("initiate_settlement: repayment_address %q must be 32 bytes of unprefixed hex", m.RepaymentAddress)
	}
	return nil
}

func (InitiateSettlementMsg) isExecuteMsg() {}

// EncodeExecuteMsg validates msg and renders it as a single-key tagged object
func EncodeExecuteMsg(msg ExecuteMsg) (json.RawMessage, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil execute message")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(map[string]ExecuteMsg{msg.Key(): msg})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", msg.Key(), err)
	}
	return b, nil
}

// MsgExecuteContract is the destination-chain message carrying an execute payload and funds
type MsgExecuteContract struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    Coins           `json:"funds"`
}

// MarshalJSON adds the type URL so signers can route the message
func (m MsgExecuteContract) MarshalJSON() ([]byte, error) {
	type alias MsgExecuteContract
	funds := m.Funds
	if funds == nil {
		funds = Coins{}
	}
	return json.Marshal(struct {
		Type string `json:"@type"`
		alias
	}{Type: MsgExecuteContractTypeURL, alias: alias{Sender: m.Sender, Contract: m.Contract, Msg: m.Msg, Funds: funds}})
}

// NewMsgExecuteContract encodes msg and wraps it for sender and contract
func NewMsgExecuteContract(sender, contract string, msg ExecuteMsg, funds Coins) (MsgExecuteContract, error) {
	if sender == "" || contract == "" {
		return MsgExecuteContract{}, fmt.Errorf("sender and contract are required")
	}
	if err := funds.Validate(); err != nil {
		return MsgExecuteContract{}, err
	}
	payload, err := EncodeExecuteMsg(msg)
	if err != nil {
		return MsgExecuteContract{}, err
	}
	return MsgExecuteContract{Sender: sender, Contract: contract, Msg: payload, Funds: funds}, nil
}
