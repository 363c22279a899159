// Package chainclient connects to the EVM source chain.
package chainclient

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
)

// dialTimeout bounds the startup chain id check
const dialTimeout = 15 * time.Second

// Client reads blocks and logs from the source chain. Subscriptions go over the
// websocket endpoint when one is configured.
type Client struct {
	ChainID int
	RPCURL  string
	WSURL   string

	client   *ethclient.Client
	wsClient *ethclient.Client
	logger   logger.Logger
}

// New dials rpcURL, and wsURL when set, and checks the node serves chainID
func New(ctx context.Context, chainID int, rpcURL, wsURL string, logger logger.Logger) (*Client, error) {
	c := &Client{
		ChainID: chainID,
		RPCURL:  rpcURL,
		WSURL:   wsURL,
		logger:  logger,
	}
	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to chain %d: %w", chainID, err)
	}
	return c, nil
}

// connect establishes the RPC connections and verifies the chain id
func (c *Client) connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, c.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to client: %w", err)
	}
	c.client = client

	timeoutCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	remoteID, err := client.ChainID(timeoutCtx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if !remoteID.IsInt64() || remoteID.Int64() != int64(c.ChainID) {
		return fmt.Errorf("node at %s serves chain %s, expected %d", c.RPCURL, remoteID, c.ChainID)
	}

	if c.WSURL != "" {
		wsClient, err := ethclient.DialContext(ctx, c.WSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to websocket: %w", err)
		}
		c.wsClient = wsClient
	}

	c.logger.InfoWithChain(c.ChainID, "Connected to source chain at %s (subscriptions: %t)", c.RPCURL, c.wsClient != nil)
	return nil
}

// GetLatestBlockNumber gets the latest block number from the chain
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.BlockNumber(ctx)
}

// BlockNumber returns the head block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("client not connected")
	}
	return c.client.BlockNumber(ctx)
}

// FilterLogs runs an eth_getLogs query
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	return c.client.FilterLogs(ctx, q)
}

// SubscribeFilterLogs subscribes over the websocket endpoint. Without one it reports
// notifications as unsupported so callers fall back to polling.
func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if c.wsClient == nil {
		return nil, rpc.ErrNotificationsUnsupported
	}
	return c.wsClient.SubscribeFilterLogs(ctx, q, ch)
}

// SupportsSubscriptions reports whether a websocket endpoint is connected
func (c *Client) SupportsSubscriptions() bool {
	return c.wsClient != nil
}

// Close closes the underlying connections
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
	if c.wsClient != nil {
		c.wsClient.Close()
	}
}
