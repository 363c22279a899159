// Package signer provides a client for a remote transaction signing service.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

type addressResponse struct {
	Address string `json:"address"`
}

type signResponse struct {
	TxBytes string `json:"tx_bytes"`
}

// Client signs destination chain transactions through a remote service
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger

	mu      sync.RWMutex
	address string
}

var _ cosmos.Signer = (*Client)(nil)

// New creates a new signer client
func New(endpoint string, logger logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: createHTTPClient(),
		logger:     logger,
	}
}

// Resolve fetches the signing address. If expected is set the service must report it.
func (c *Client) Resolve(ctx context.Context, expected string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/address", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	var resp addressResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch signer address: %w", err)
	}

	if _, _, err := translate.Bech32ToBytes(resp.Address); err != nil {
		return "", fmt.Errorf("signer returned an invalid address %q: %w", resp.Address, err)
	}
	if expected != "" && expected != resp.Address {
		return "", fmt.Errorf("signer address %s does not match configured %s", resp.Address, expected)
	}

	c.mu.Lock()
	c.address = resp.Address
	c.mu.Unlock()
	return resp.Address, nil
}

// Address returns the resolved signing address
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// Sign asks the service to sign the transaction described by signReq
func (c *Client) Sign(ctx context.Context, signReq cosmos.SignRequest) ([]byte, error) {
	body, err := json.Marshal(signReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/sign", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp signResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	txBytes, err := translate.Base64ToBytes(resp.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("signer returned invalid tx bytes: %w", err)
	}
	if len(txBytes) == 0 {
		return nil, fmt.Errorf("signer returned empty tx bytes")
	}
	return txBytes, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	// Read the response body regardless of status code
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %v, body: %s", err, string(bodyBytes))
	}
	return nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
