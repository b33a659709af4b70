/*
Package ledger is the client for the external coin ledger service.

The server holds no balance state itself: access checks are point-in-time
reads, and debits are fire-once postings keyed by feature. An insufficient
balance is a normal business outcome carried in the result, never an error;
errors are reserved for the ledger service being unreachable or broken.
*/
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Feature identifiers known to the ledger service.
const (
	FeatureVoiceSession = "voice_session"
	FeatureDailySatsang = "daily_satsang"
	FeatureLiveSatsang  = "live_satsang"
)

// FeatureAccess is the point-in-time result of an access check.
type FeatureAccess struct {
	HasAccess      bool   `json:"hasAccess"`
	Reason         string `json:"reason,omitempty"`
	RequiredCoins  int    `json:"requiredCoins,omitempty"`
	AvailableCoins int    `json:"availableCoins,omitempty"`
}

// DeductResult reports one completed debit.
type DeductResult struct {
	CoinsDeducted int    `json:"coinsDeducted"`
	NewBalance    int    `json:"newBalance"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Client talks to the coin ledger service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a ledger client for the given service base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// checkAccessResponse mirrors the ledger service's check-access payload.
type checkAccessResponse struct {
	Success        bool   `json:"success"`
	HasAccess      bool   `json:"hasAccess"`
	Reason         string `json:"reason"`
	Error          string `json:"error"`
	Cost           int    `json:"cost"`
	RequiredCoins  int    `json:"requiredCoins"`
	AvailableCoins int    `json:"availableCoins"`
}

// CheckAccess asks the ledger whether the user can afford the feature.
func (c *Client) CheckAccess(ctx context.Context, userID, featureID string) (*FeatureAccess, error) {
	var out checkAccessResponse
	err := c.post(ctx, "/coins/check-access", map[string]any{
		"userId":    userID,
		"featureId": featureID,
	}, &out)
	if err != nil {
		return nil, err
	}

	access := &FeatureAccess{
		HasAccess:      out.Success && out.HasAccess,
		Reason:         out.Reason,
		RequiredCoins:  out.RequiredCoins,
		AvailableCoins: out.AvailableCoins,
	}
	if !out.Success && out.Error != "" {
		access.Reason = out.Error
	}
	if access.RequiredCoins == 0 {
		access.RequiredCoins = out.Cost
	}

	return access, nil
}

// deductResponse mirrors the ledger service's deduct payload.
type deductResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	CoinsDeducted int    `json:"coinsDeducted"`
	NewBalance    int    `json:"newBalance"`
	TransactionID string `json:"transactionId"`
}

// Deduct posts a debit for the feature's fixed cost. The upstream contract
// only knows per-feature amounts; session duration travels in metadata for
// bookkeeping and is not part of the charged amount.
func (c *Client) Deduct(ctx context.Context, userID, featureID string, metadata map[string]any) (*DeductResult, error) {
	var out deductResponse
	err := c.post(ctx, "/coins/deduct", map[string]any{
		"userId":    userID,
		"featureId": featureID,
		"metadata":  metadata,
	}, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success {
		return nil, fmt.Errorf("ledger: deduct rejected: %s", out.Error)
	}

	return &DeductResult{
		CoinsDeducted: out.CoinsDeducted,
		NewBalance:    out.NewBalance,
		TransactionID: out.TransactionID,
	}, nil
}

// post performs one JSON request against the ledger service.
func (c *Client) post(ctx context.Context, path string, reqBody any, out any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("ledger: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ledger: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ledger: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ledger: reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 500 {
		return fmt.Errorf("ledger: %s returned HTTP %d", path, httpResp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ledger: decoding response: %w", err)
	}

	return nil
}
