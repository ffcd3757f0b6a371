// Package push is a thin client for an Expo-compatible push gateway.
// It sends one multicast request per fan-out and reports per-recipient
// receipts so callers can prune permanently dead tokens.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DeviceNotRegistered is the gateway's stable signal that a token is
// permanently invalid and should be removed from the registry.
const DeviceNotRegistered = "DeviceNotRegistered"

// Message is the notification content shared by all recipients of one
// multicast.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Receipt is the delivery result for a single token.
type Receipt struct {
	Token string
	OK    bool
	Err   string
}

// PermanentFailure reports whether the token should never be used
// again.
func (r Receipt) PermanentFailure() bool {
	return !r.OK && r.Err == DeviceNotRegistered
}

// Sender is the gateway boundary consumed by the notification fan-out.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) ([]Receipt, error)
}

// Client talks to the push gateway over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a push gateway client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound"`
	Priority string            `json:"priority"`
}

type pushResponse struct {
	Data []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
}

// SendMulticast posts one batched request covering all tokens and maps
// the gateway's per-entry results back onto them. The returned error
// covers transport-level failure only; individual rejections are
// receipts.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]Receipt, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	payload := make([]pushRequest, 0, len(tokens))
	for _, token := range tokens {
		payload = append(payload, pushRequest{
			To:       token,
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     msg.Data,
			Sound:    "default",
			Priority: "high",
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}

	receipts := make([]Receipt, 0, len(tokens))
	for i, token := range tokens {
		if i >= len(parsed.Data) {
			receipts = append(receipts, Receipt{Token: token, OK: false, Err: "missing receipt"})
			continue
		}
		entry := parsed.Data[i]
		if entry.Status == "ok" {
			receipts = append(receipts, Receipt{Token: token, OK: true})
		} else {
			receipts = append(receipts, Receipt{Token: token, OK: false, Err: entry.Details.Error})
		}
	}
	return receipts, nil
}
