package cosmos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cosmossdk.io/math"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// ErrTxNotFound is returned while a transaction is not yet indexed
var ErrTxNotFound = errors.New("tx not found")

// Account holds the signing fields of an on-chain account
type Account struct {
	Address       string `json:"address"`
	AccountNumber uint64 `json:"account_number,string"`
	Sequence      uint64 `json:"sequence,string"`
}

// EventAttribute is a key/value pair of a transaction event
type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is an ABCI event emitted by a transaction
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

// TxResponse is the node's view of a broadcast or included transaction
type TxResponse struct {
	Height    int64   `json:"height,string"`
	TxHash    string  `json:"txhash"`
	Codespace string  `json:"codespace"`
	Code      uint32  `json:"code"`
	RawLog    string  `json:"raw_log"`
	GasWanted int64   `json:"gas_wanted,string"`
	GasUsed   int64   `json:"gas_used,string"`
	Events    []Event `json:"events"`
}

// FindAttribute returns the first attribute value for eventType and key
func (r *TxResponse) FindAttribute(eventType, key string) (string, bool) {
	for _, ev := range r.Events {
		if ev.Type != eventType {
			continue
		}
		for _, attr := range ev.Attributes {
			if attr.Key == key {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// NodeInfo is the subset of node_info the relayer checks at startup
type NodeInfo struct {
	Network string `json:"network"`
	Version string `json:"version"`
	Moniker string `json:"moniker"`
}

// APIError is a non-2xx response from the REST endpoint
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rest api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("rest api error (status %d)", e.StatusCode)
}

// Client queries and broadcasts through a Cosmos SDK REST (LCD) endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a REST client for endpoint
func NewClient(endpoint string, logger logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: createHTTPClient(),
		logger:     logger,
	}
}

// NodeInfo returns the node's network identity
func (c *Client) NodeInfo(ctx context.Context) (*NodeInfo, error) {
	var resp struct {
		DefaultNodeInfo NodeInfo `json:"default_node_info"`
	}
	if err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/node_info", &resp); err != nil {
		return nil, fmt.Errorf("failed to get node info: %w", err)
	}
	return &resp.DefaultNodeInfo, nil
}

// GetBalance returns the balance of denom held by address
func (c *Client) GetBalance(ctx context.Context, address, denom string) (math.Int, error) {
	var resp struct {
		Balance *Coin `json:"balance"`
	}
	path := fmt.Sprintf("/cosmos/bank/v1beta1/balances/%s/by_denom?denom=%s", address, url.QueryEscape(denom))
	if err := c.get(ctx, path, &resp); err != nil {
		return math.Int{}, fmt.Errorf("failed to get balance of %s: %w", denom, err)
	}
	if resp.Balance == nil || resp.Balance.Amount.IsNil() {
		return math.ZeroInt(), nil
	}
	return resp.Balance.Amount, nil
}

// GetAccount returns the account number and sequence of address
func (c *Client) GetAccount(ctx context.Context, address string) (*Account, error) {
	var resp struct {
		Account Account `json:"account"`
	}
	if err := c.get(ctx, "/cosmos/auth/v1beta1/accounts/"+address, &resp); err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &resp.Account, nil
}

// Simulate dry-runs a signed transaction and returns the gas it used
func (c *Client) Simulate(ctx context.Context, txBytes []byte) (uint64, error) {
	req := map[string]string{"tx_bytes": translate.BytesToBase64(txBytes)}
	var resp struct {
		GasInfo struct {
			GasUsed uint64 `json:"gas_used,string"`
		} `json:"gas_info"`
	}
	if err := c.post(ctx, "/cosmos/tx/v1beta1/simulate", req, &resp); err != nil {
		return 0, fmt.Errorf("simulation failed: %w", err)
	}
	return resp.GasInfo.GasUsed, nil
}

// Broadcast submits a signed transaction in sync mode and returns the CheckTx result
func (c *Client) Broadcast(ctx context.Context, txBytes []byte) (*TxResponse, error) {
	req := map[string]string{
		"tx_bytes": translate.BytesToBase64(txBytes),
		"mode":     "BROADCAST_MODE_SYNC",
	}
	var resp struct {
		TxResponse TxResponse `json:"tx_response"`
	}
	if err := c.post(ctx, "/cosmos/tx/v1beta1/txs", req, &resp); err != nil {
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}
	return &resp.TxResponse, nil
}

// GetTx returns an included transaction, or ErrTxNotFound
func (c *Client) GetTx(ctx context.Context, hash string) (*TxResponse, error) {
	var resp struct {
		TxResponse TxResponse `json:"tx_response"`
	}
	err := c.get(ctx, "/cosmos/tx/v1beta1/txs/"+hash, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || strings.Contains(apiErr.Message, "not found")) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("failed to get tx %s: %w", hash, err)
	}
	return &resp.TxResponse, nil
}

// WaitForTx polls until the transaction is included or ctx is done
func (c *Client) WaitForTx(ctx context.Context, hash string, interval time.Duration) (*TxResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tx, err := c.GetTx(ctx, hash)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, ErrTxNotFound) {
			c.logger.Debug("Polling tx %s: %v", hash, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for tx %s: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SmartQuery runs a CosmWasm smart query against contract and decodes the data into out
func (c *Client) SmartQuery(ctx context.Context, contract string, query interface{}, out interface{}) error {
	raw, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}
	path := fmt.Sprintf("/cosmwasm/wasm/v1/contract/%s/smart/%s", contract, url.PathEscape(translate.BytesToBase64(raw)))
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return fmt.Errorf("smart query on %s failed: %w", contract, err)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode smart query result: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	return nil
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
