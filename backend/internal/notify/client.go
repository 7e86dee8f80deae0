// Package notify formats and delivers attendance messages through the
// WhatsApp provider. Delivery failures are isolated here: every operation
// returns structured results instead of propagating errors into the
// attendance workflow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"attendtrack/backend/internal/shared"
)

// Config holds the provider endpoint and delivery policy.
type Config struct {
	APIURL             string
	APIToken           string
	DefaultCountryCode string
	RequestTimeout     time.Duration
	MaxRetries         int
	BulkSendDelay      time.Duration
}

// Client is an explicitly constructed dispatcher; tests inject an httptest
// server URL and a short delay.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a dispatcher for the configured provider.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "91"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Configured reports whether a provider endpoint is set.
func (c *Client) Configured() bool { return c.cfg.APIURL != "" }

// SendResult is the per-recipient outcome of a send.
type SendResult struct {
	Success   bool   `json:"success"`
	Phone     string `json:"phone"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkResult aggregates a sequential bulk send.
type BulkResult struct {
	Results      []SendResult `json:"results"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
}

// providerRequest is the provider's message payload.
type providerRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Body string `json:"body"`
}

// providerResponse is the provider's success or error payload.
type providerResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// SendSingle delivers one message. The returned result carries the failure
// instead of an error so bulk operations and callers in the attendance path
// can continue regardless of provider health.
func (c *Client) SendSingle(ctx context.Context, recipient, message string) SendResult {
	phone, err := NormalizePhone(recipient, c.cfg.DefaultCountryCode)
	if err != nil {
		return SendResult{Success: false, Phone: recipient, Error: err.Error()}
	}
	if !c.Configured() {
		return SendResult{Success: false, Phone: phone, Error: "messaging provider not configured"}
	}

	resp, err := c.post(ctx, providerRequest{To: phone, Type: "text", Body: message})
	if err != nil {
		log.Printf("WARNING: whatsapp send to %s failed: %v", phone, err)
		return SendResult{Success: false, Phone: phone, Error: err.Error()}
	}
	return SendResult{Success: true, Phone: phone, MessageID: resp.MessageID}
}

// SendBulk delivers the message to each recipient sequentially with a fixed
// inter-message delay to respect provider rate limits. Individual failures
// are collected; the batch never aborts early.
func (c *Client) SendBulk(ctx context.Context, recipients []string, message string, delay time.Duration) BulkResult {
	if delay <= 0 {
		delay = c.cfg.BulkSendDelay
	}

	out := BulkResult{Results: make([]SendResult, 0, len(recipients))}
	for i, recipient := range recipients {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				out.Results = append(out.Results, SendResult{Success: false, Phone: recipient, Error: ctx.Err().Error()})
				out.FailureCount++
				continue
			}
		}
		res := c.SendSingle(ctx, recipient, message)
		out.Results = append(out.Results, res)
		if res.Success {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
	}
	return out
}

// post performs the provider call with a bounded retry budget. Only
// transient statuses (429 and 5xx) are retried; other failures fail fast.
func (c *Client) post(ctx context.Context, payload providerRequest) (*providerResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", shared.ErrExternalService, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", shared.ErrExternalService, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", shared.ErrExternalService, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var out providerResponse
			if err := json.Unmarshal(respBody, &out); err != nil {
				return nil, fmt.Errorf("%w: decode response: %v", shared.ErrExternalService, err)
			}
			return &out, nil
		}

		providerMsg := extractProviderError(respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("provider returned %d: %s", resp.StatusCode, providerMsg)
			continue
		}
		return nil, fmt.Errorf("%w: provider returned %d: %s", shared.ErrExternalService, resp.StatusCode, providerMsg)
	}
	return nil, fmt.Errorf("%w: %d attempts failed: %v", shared.ErrExternalService, c.cfg.MaxRetries, lastErr)
}

func extractProviderError(body []byte) string {
	var out providerResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Error != "" {
		return out.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
