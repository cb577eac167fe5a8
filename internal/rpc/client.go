// Package rpc is the HTTP client for a node's transaction API. It
// implements the race engine's session capabilities: one Client per
// endpoint, dialed during the prepare phase.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/usopp-send/rpc-race/internal/chain"
	"github.com/usopp-send/rpc-race/internal/retry"
)

// APIError is a node-reported (non-transport) failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

type Client struct {
	endpoint string
	rc       *resty.Client
}

func NewClient(endpoint string) *Client {
	endpoint = strings.TrimRight(endpoint, "/")
	rc := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(10 * time.Second)
	return &Client{endpoint: endpoint, rc: rc}
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Close() error { return nil }

type healthResp struct {
	OK bool `json:"ok"`
}

func (c *Client) Health(ctx context.Context) error {
	var out healthResp
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("health %s: status=%d", c.endpoint, resp.StatusCode())
	}
	return nil
}

type balanceResp struct {
	Pubkey  string `json:"pubkey"`
	Balance uint64 `json:"balance"`
}

func (c *Client) Balance(ctx context.Context, pubkey string) (uint64, error) {
	var out balanceResp
	apiErr := &APIError{}
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).SetError(apiErr).
		Get("/account/" + pubkey)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("balance %s: %w", pubkey, apiErr)
	}
	return out.Balance, nil
}

type blockhashResp struct {
	Blockhash string `json:"blockhash"`
}

func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	var out blockhashResp
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get("/blockhash/latest")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("blockhash: status=%d", resp.StatusCode())
	}
	return out.Blockhash, nil
}

type submitResp struct {
	Signature string `json:"signature"`
}

// Submit posts the signed transaction. The caller measures send
// duration around this call; Submit itself adds no retries.
func (c *Client) Submit(ctx context.Context, tx chain.SignedTx) (chain.Signature, error) {
	var out submitResp
	apiErr := &APIError{}
	resp, err := c.rc.R().SetContext(ctx).SetBody(tx).SetResult(&out).SetError(apiErr).
		Post("/tx")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("submit via %s: %w", c.endpoint, apiErr)
	}
	return chain.Signature(out.Signature), nil
}

func (c *Client) Status(ctx context.Context, sig chain.Signature) (chain.TxStatus, error) {
	var out chain.TxStatus
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).
		Get("/tx/" + sig.String() + "/status")
	if err != nil {
		return chain.TxStatus{}, err
	}
	if resp.IsError() {
		return chain.TxStatus{}, fmt.Errorf("status %s: status=%d", sig, resp.StatusCode())
	}
	return out, nil
}

// SimResult is the node's validation-only execution outcome.
type SimResult struct {
	OK      bool     `json:"ok"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Logs    []string `json:"logs,omitempty"`
}

func (c *Client) Simulate(ctx context.Context, tx chain.SignedTx) (SimResult, error) {
	var out SimResult
	resp, err := c.rc.R().SetContext(ctx).SetBody(tx).SetResult(&out).Post("/tx/simulate")
	if err != nil {
		return SimResult{}, err
	}
	if resp.IsError() {
		return SimResult{}, fmt.Errorf("simulate via %s: status=%d", c.endpoint, resp.StatusCode())
	}
	return out, nil
}

// DialNode builds a Client and warms the connection with health probes
// until the prepare deadline. Setup cost lands here, before the
// release barrier, so it never biases the race itself.
func DialNode(ctx context.Context, endpoint string) (*Client, error) {
	c := NewClient(endpoint)
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Jitter:      50 * time.Millisecond,
	}, func(ctx context.Context) error {
		return c.Health(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return c, nil
}

// AsAPIError unwraps a node-reported failure, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
