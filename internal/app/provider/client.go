/*
Package provider implements a thin client for the media transport provider's
server API (egress control and room administration).

The provider exposes Twirp-style JSON endpoints: every operation is a POST of
a JSON body to /twirp/<service>/<method>, authorized by a short-lived admin
credential minted per request. Only the operations this service needs are
implemented.
*/
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"guruvani/internal/app/token"
)

const (
	egressService = "livekit.Egress"
	roomService   = "livekit.RoomService"

	requestTimeout = 15 * time.Second
)

// EgressInfo is the provider's description of one recording.
type EgressInfo struct {
	EgressID string `json:"egress_id"`
	RoomName string `json:"room_name"`
	Status   string `json:"status"`
}

// S3Output describes the storage destination for an encoded file egress.
type S3Output struct {
	AccessKey string `json:"access_key"`
	Secret    string `json:"secret"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

// FileOutput describes one encoded file an egress writes.
type FileOutput struct {
	FileType string    `json:"file_type"`
	Filepath string    `json:"filepath"`
	S3       *S3Output `json:"s3,omitempty"`
}

// Client talks to the provider's server API.
type Client struct {
	baseURL string
	issuer  *token.Issuer
	http    *http.Client
}

// NewClient constructs a provider client for the given transport URL.
// WebSocket URLs are accepted and rewritten to their HTTP equivalents.
func NewClient(serverURL string, issuer *token.Issuer) *Client {
	return &Client{
		baseURL: httpURL(serverURL),
		issuer:  issuer,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// httpURL rewrites ws:// and wss:// transport URLs to http:// and https://.
func httpURL(serverURL string) string {
	u := strings.TrimSuffix(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}

// StartRoomCompositeEgress starts a composite recording of the named room.
func (c *Client) StartRoomCompositeEgress(ctx context.Context, roomName string, output FileOutput, audioOnly bool) (*EgressInfo, error) {
	reqBody := map[string]any{
		"room_name":    roomName,
		"audio_only":   audioOnly,
		"file_outputs": []FileOutput{output},
	}

	var info EgressInfo
	if err := c.call(ctx, egressService, "StartRoomCompositeEgress", reqBody, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// ListEgress returns all currently active egresses for the named room.
func (c *Client) ListEgress(ctx context.Context, roomName string) ([]EgressInfo, error) {
	reqBody := map[string]any{
		"room_name": roomName,
		"active":    true,
	}

	var listResp struct {
		Items []EgressInfo `json:"items"`
	}
	if err := c.call(ctx, egressService, "ListEgress", reqBody, &listResp); err != nil {
		return nil, err
	}

	return listResp.Items, nil
}

// StopEgress stops the recording identified by egressID.
func (c *Client) StopEgress(ctx context.Context, egressID string) error {
	reqBody := map[string]any{"egress_id": egressID}

	var info EgressInfo
	return c.call(ctx, egressService, "StopEgress", reqBody, &info)
}

// DeleteRoom tears down the named room, disconnecting every participant.
func (c *Client) DeleteRoom(ctx context.Context, roomName string) error {
	reqBody := map[string]any{"room": roomName}

	var ignored map[string]any
	return c.call(ctx, roomService, "DeleteRoom", reqBody, &ignored)
}

// call performs one Twirp-style request with a freshly minted admin credential.
func (c *Client) call(ctx context.Context, service, method string, reqBody any, out any) error {
	adminToken, err := c.issuer.MintAdmin()
	if err != nil {
		return fmt.Errorf("provider: minting admin credential: %w", err)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("provider: encoding %s.%s request: %w", service, method, err)
	}

	url := fmt.Sprintf("%s/twirp/%s/%s", c.baseURL, service, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("provider: building %s.%s request: %w", service, method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+adminToken)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider: %s.%s request failed: %w", service, method, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("provider: reading %s.%s response: %w", service, method, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider: %s.%s returned HTTP %d: %s", service, method, httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("provider: decoding %s.%s response: %w", service, method, err)
	}

	return nil
}
