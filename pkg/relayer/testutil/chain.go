package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Node error codes reproduced by FakeChain
const (
	CodeOK               uint32 = 0
	CodeContractError    uint32 = 5
	CodeSequenceMismatch uint32 = 32
)

// AlreadyFilledLog is the contract error returned for a second fill of an order
const AlreadyFilledLog = "failed to execute message; message index: 0: Order already filled: execute wasm contract failed"

// QueryHandler answers smart queries sent to FakeChain
type QueryHandler func(contract string, query json.RawMessage) (interface{}, error)

// FakeChain is an in-memory destination chain. Transactions are the JSON encoding
// of a cosmos.SignRequest, as produced by FakeSigner.
type FakeChain struct {
	mu sync.Mutex

	ChainID       string
	AccountNumber uint64
	// SimulatedGas is reported by every successful simulation
	SimulatedGas uint64

	// SimulateErr fails every simulation when set
	SimulateErr error
	// BroadcastErr fails every broadcast with a transport error when set
	BroadcastErr error
	// CheckTxCode rejects broadcasts at CheckTx when non-zero
	CheckTxCode uint32
	// DeliverCode and DeliverLog set the result of included transactions
	DeliverCode uint32
	DeliverLog  string
	// TxEvents are attached to every included transaction
	TxEvents []cosmos.Event
	// Unindexed keeps WaitForTx waiting until its context ends
	Unindexed bool
	// Query answers SmartQuery
	Query QueryHandler

	balances  map[string]map[string]math.Int
	sequences map[string]uint64
	filled    map[string]bool
	txs       map[string]*cosmos.TxResponse
	height    int64

	Simulations []cosmos.SignRequest
	Broadcasts  []cosmos.SignRequest
	Queries     []json.RawMessage
}

// NewFakeChain creates a chain with a 200000 gas estimate and no balances
func NewFakeChain(chainID string) *FakeChain {
	return &FakeChain{
		ChainID:       chainID,
		AccountNumber: 7,
		SimulatedGas:  200_000,
		balances:      make(map[string]map[string]math.Int),
		sequences:     make(map[string]uint64),
		filled:        make(map[string]bool),
		txs:           make(map[string]*cosmos.TxResponse),
		height:        1000,
	}
}

// SetBalance sets the balance of address in denom
func (c *FakeChain) SetBalance(address, denom string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[address] == nil {
		c.balances[address] = make(map[string]math.Int)
	}
	c.balances[address][denom] = math.NewInt(amount)
}

// SetSequence sets the on-chain sequence of address
func (c *FakeChain) SetSequence(address string, sequence uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sequences[address] = sequence
}

// MarkFilled makes later executions of msg fail as already filled
func (c *FakeChain) MarkFilled(msg json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filled[string(msg)] = true
}

// BroadcastCount returns the number of transactions accepted into the mempool
func (c *FakeChain) BroadcastCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Broadcasts)
}

// SimulationCount returns the number of simulations run
func (c *FakeChain) SimulationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Simulations)
}

// LastBroadcast returns the most recent accepted transaction
func (c *FakeChain) LastBroadcast() (cosmos.SignRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Broadcasts) == 0 {
		return cosmos.SignRequest{}, false
	}
	return c.Broadcasts[len(c.Broadcasts)-1], true
}

// NodeInfo reports the chain id as the network
func (c *FakeChain) NodeInfo(ctx context.Context) (*cosmos.NodeInfo, error) {
	return &cosmos.NodeInfo{Network: c.ChainID, Version: "fake", Moniker: "fake"}, nil
}

// GetBalance returns the balance of address in denom
func (c *FakeChain) GetBalance(ctx context.Context, address, denom string) (math.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount, ok := c.balances[address][denom]; ok {
		return amount, nil
	}
	return math.ZeroInt(), nil
}

// GetAccount returns the account number and current sequence of address
func (c *FakeChain) GetAccount(ctx context.Context, address string) (*cosmos.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &cosmos.Account{Address: address, AccountNumber: c.AccountNumber, Sequence: c.sequences[address]}, nil
}

// Simulate checks that no message fills an already filled order
func (c *FakeChain) Simulate(ctx context.Context, txBytes []byte) (uint64, error) {
	req, err := decodeTx(txBytes)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Simulations = append(c.Simulations, req)
	if c.SimulateErr != nil {
		return 0, c.SimulateErr
	}
	if !req.Simulate {
		return 0, &cosmos.APIError{StatusCode: 400, Code: 3, Message: "simulate requires a simulation transaction"}
	}
	for _, msg := range req.Messages {
		if c.filled[string(msg.Msg)] {
			return 0, &cosmos.APIError{StatusCode: 400, Code: int(CodeContractError), Message: AlreadyFilledLog}
		}
	}
	return c.SimulatedGas, nil
}

// Broadcast accepts a transaction when its sequence matches the account
func (c *FakeChain) Broadcast(ctx context.Context, txBytes []byte) (*cosmos.TxResponse, error) {
	req, err := decodeTx(txBytes)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BroadcastErr != nil {
		return nil, c.BroadcastErr
	}

	hash := txHash(txBytes)
	if req.Simulate {
		return &cosmos.TxResponse{TxHash: hash, Code: 4, Codespace: "sdk", RawLog: "signature verification failed"}, nil
	}
	if c.CheckTxCode != 0 {
		return &cosmos.TxResponse{TxHash: hash, Code: c.CheckTxCode, Codespace: "sdk", RawLog: "rejected at check tx"}, nil
	}
	signer := txSigner(req)
	if expected := c.sequences[signer]; req.Sequence != expected {
		return &cosmos.TxResponse{
			TxHash:    hash,
			Code:      CodeSequenceMismatch,
			Codespace: "sdk",
			RawLog:    fmt.Sprintf("account sequence mismatch, expected %d, got %d: incorrect account sequence", expected, req.Sequence),
		}, nil
	}

	c.sequences[signer]++
	c.Broadcasts = append(c.Broadcasts, req)
	c.height++

	included := &cosmos.TxResponse{
		Height:    c.height,
		TxHash:    hash,
		Code:      c.DeliverCode,
		RawLog:    c.DeliverLog,
		GasWanted: int64(req.Fee.GasLimit),
		GasUsed:   int64(c.SimulatedGas),
	}
	if included.Code == CodeOK {
		for _, msg := range req.Messages {
			if c.filled[string(msg.Msg)] {
				included.Code = CodeContractError
				included.Codespace = "wasm"
				included.RawLog = AlreadyFilledLog
				break
			}
		}
	}
	if included.Code == CodeOK {
		for _, msg := range req.Messages {
			c.filled[string(msg.Msg)] = true
		}
		included.Events = append([]cosmos.Event(nil), c.TxEvents...)
	}
	c.txs[hash] = included

	return &cosmos.TxResponse{TxHash: hash, Code: CodeOK}, nil
}

// GetTx returns an included transaction
func (c *FakeChain) GetTx(ctx context.Context, hash string) (*cosmos.TxResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.txs[hash]
	if !ok || c.Unindexed {
		return nil, cosmos.ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

// WaitForTx returns an included transaction, or waits for ctx while Unindexed is set
func (c *FakeChain) WaitForTx(ctx context.Context, hash string, _ time.Duration) (*cosmos.TxResponse, error) {
	tx, err := c.GetTx(ctx, hash)
	if err == nil {
		return tx, nil
	}
	<-ctx.Done()
	return nil, fmt.Errorf("timed out waiting for tx %s: %w", hash, ctx.Err())
}

// SmartQuery passes the query to the Query handler
func (c *FakeChain) SmartQuery(ctx context.Context, contract string, query interface{}, out interface{}) error {
	raw, err := json.Marshal(query)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.Queries = append(c.Queries, raw)
	handler := c.Query
	c.mu.Unlock()

	if handler == nil {
		return &cosmos.APIError{StatusCode: 400, Code: 2, Message: "no such contract"}
	}
	result, err := handler(contract, raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func decodeTx(txBytes []byte) (cosmos.SignRequest, error) {
	var req cosmos.SignRequest
	if err := json.Unmarshal(txBytes, &req); err != nil {
		return req, &cosmos.APIError{StatusCode: 400, Code: 2, Message: "tx parse error: " + err.Error()}
	}
	return req, nil
}

func txSigner(req cosmos.SignRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[0].Sender
}

func txHash(txBytes []byte) string {
	sum := sha256.Sum256(txBytes)
	return strings.ToUpper(translate.BytesToHex(sum[:]))
}

// FakeSigner signs by JSON-encoding the request
type FakeSigner struct {
	mu      sync.Mutex
	address string

	// Err fails every signature when set
	Err   error
	Signs int
}

// NewFakeSigner creates a signer for address
func NewFakeSigner(address string) *FakeSigner {
	return &FakeSigner{address: address}
}

// Address implements cosmos.Signer
func (s *FakeSigner) Address() string {
	return s.address
}

// Sign implements cosmos.Signer
func (s *FakeSigner) Sign(ctx context.Context, req cosmos.SignRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Signs++
	if s.Err != nil {
		return nil, s.Err
	}
	return json.Marshal(req)
}

// SolverAddress is a valid osmo address used as the fake signer's account
func SolverAddress() string {
	addr, err := translate.BytesToBech32("osmo", UserAddress.Bytes())
	if err != nil {
		panic(err)
	}
	return addr
}
