package cosmos

import "context"

// SignRequest describes a transaction for the external signer to assemble and sign
type SignRequest struct {
	ChainID       string               `json:"chain_id"`
	AccountNumber uint64               `json:"account_number,string"`
	Sequence      uint64               `json:"sequence,string"`
	Messages      []MsgExecuteContract `json:"messages"`
	Fee           Fee                  `json:"fee"`
	Memo          string               `json:"memo,omitempty"`
	// Simulate asks for a transaction usable only with the simulate endpoint
	Simulate bool `json:"simulate"`
}

// Signer produces signed transaction bytes. Key material never enters the relayer.
type Signer interface {
	Address() string
	Sign(ctx context.Context, req SignRequest) ([]byte, error)
}
