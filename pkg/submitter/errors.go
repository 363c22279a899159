package submitter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/speedrun-hq/gofast-relayer/pkg/balance"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/resolver"
)

// Error types reported by Classify and used as metric labels
const (
	ErrorAlreadyProcessed    = "already_processed"
	ErrorNetwork             = "network_error"
	ErrorSequence            = "sequence_error"
	ErrorGas                 = "gas_error"
	ErrorInsufficientBalance = "insufficient_balance"
	ErrorUnknownAsset        = "unknown_asset"
	ErrorUnsupported         = "unsupported_topology"
	ErrorDeadlinePassed      = "deadline_passed"
	ErrorInvalidAmount       = "invalid_amount"
	ErrorContract            = "contract_error"
	ErrorUnknown             = "unknown_error"
)

// Cosmos SDK response codes the submitter reacts to
const (
	codeInsufficientFunds = 5
	codeOutOfGas          = 11
	codeInsufficientFee   = 13
	codeTxInMempool       = 19
	codeSequenceMismatch  = 32
)

// ErrDeadlinePassed is returned for orders whose fill deadline is behind us
var ErrDeadlinePassed = errors.New("fill deadline passed")

// SimulationError is returned when the destination chain refuses to simulate a fill
type SimulationError struct {
	Err error
	// AlreadyFilled is set when the contract reports the order as filled
	AlreadyFilled bool
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// Stage is where in its lifecycle a transaction was rejected
type Stage string

const (
	StageCheckTx   Stage = "check_tx"
	StageDeliverTx Stage = "deliver_tx"
)

// BroadcastError is returned for a non-zero response code
type BroadcastError struct {
	Stage     Stage
	Code      uint32
	Codespace string
	RawLog    string
	TxHash    string
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("tx %s rejected at %s with code %d (%s): %s", e.TxHash, e.Stage, e.Code, e.Codespace, e.RawLog)
}

// IsSequenceMismatch reports whether the node rejected the sequence number
func (e *BroadcastError) IsSequenceMismatch() bool {
	return e.Code == codeSequenceMismatch && (e.Codespace == "" || e.Codespace == "sdk")
}

func isAlreadyFilled(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already filled")
}

// Classify maps an error to a retry decision and an error type
func Classify(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var simErr *SimulationError
	var bcastErr *BroadcastError
	var assetErr *resolver.UnknownAssetError
	var topoErr *resolver.UnsupportedTopologyError
	var balanceErr *balance.InsufficientBalanceError
	var apiErr *cosmos.APIError

	switch {
	case errors.Is(err, ErrDeadlinePassed):
		return false, ErrorDeadlinePassed
	case errors.Is(err, cosmos.ErrAmountOverflow):
		return false, ErrorInvalidAmount
	case errors.As(err, &assetErr):
		return false, ErrorUnknownAsset
	case errors.As(err, &topoErr):
		return false, ErrorUnsupported
	case errors.As(err, &balanceErr):
		return false, ErrorInsufficientBalance
	case errors.As(err, &simErr):
		if simErr.AlreadyFilled {
			return false, ErrorAlreadyProcessed
		}
		retry, errorType := classifyMessage(simErr.Err.Error())
		if errorType == ErrorUnknown {
			// a revert may clear once competing state settles
			return true, ErrorContract
		}
		return retry, errorType
	case errors.As(err, &bcastErr):
		return classifyBroadcast(bcastErr)
	case errors.Is(err, context.DeadlineExceeded):
		return true, ErrorNetwork
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 500:
		return true, ErrorNetwork
	}

	return classifyMessage(err.Error())
}

func classifyBroadcast(e *BroadcastError) (bool, string) {
	if isAlreadyFilled(e.RawLog) {
		return false, ErrorAlreadyProcessed
	}
	if e.Codespace == "" || e.Codespace == "sdk" {
		switch e.Code {
		case codeSequenceMismatch, codeTxInMempool:
			return true, ErrorSequence
		case codeOutOfGas, codeInsufficientFee:
			return true, ErrorGas
		case codeInsufficientFunds:
			return false, ErrorInsufficientBalance
		}
	}
	return false, ErrorContract
}

func classifyMessage(errStr string) (bool, string) {
	// Check for "already filled" errors - no retry needed
	if isAlreadyFilled(errStr) {
		return false, ErrorAlreadyProcessed
	}

	// Network/RPC errors - retry is appropriate
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "EOF") {
		return true, ErrorNetwork
	}

	// Sequence errors - retry once the sequence is re-read
	if strings.Contains(errStr, "account sequence mismatch") ||
		strings.Contains(errStr, "incorrect account sequence") ||
		strings.Contains(errStr, "tx already in mempool") {
		return true, ErrorSequence
	}

	// Gas-related errors - retry may help after the estimate changes
	if strings.Contains(errStr, "out of gas") ||
		strings.Contains(errStr, "insufficient fee") {
		return true, ErrorGas
	}

	// Balance-related errors - permanent failures
	if strings.Contains(errStr, "insufficient funds") ||
		strings.Contains(errStr, "insufficient balance") {
		return false, ErrorInsufficientBalance
	}

	// Unknown errors - retry with caution
	return true, ErrorUnknown
}
