// Package assistant wraps the generative-AI provider behind a single
// prompt-in, text-out call. It backs one gateway endpoint and nothing in the
// attendance workflow depends on it.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"attendtrack/backend/internal/shared"
)

// Config holds the provider endpoint and retry policy.
type Config struct {
	APIURL         string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
}

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an assistant client.
func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.RequestTimeout}}
}

// Configured reports whether a provider endpoint is set.
func (c *Client) Configured() bool { return c.cfg.APIURL != "" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompt and returns the generated text. Transient
// provider failures (429/5xx) are retried with increasing backoff; other
// failures surface immediately.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: assistant provider not configured", shared.ErrExternalService)
	}
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", shared.ErrValidation)
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", shared.ErrExternalService, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", shared.ErrExternalService, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: build request: %v", shared.ErrExternalService, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("x-goog-api-key", c.cfg.APIKey)
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

		var out generateResponse
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.Unmarshal(respBody, &out); err != nil {
				return "", fmt.Errorf("%w: decode response: %v", shared.ErrExternalService, err)
			}
			if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
				return "", fmt.Errorf("%w: provider returned no candidates", shared.ErrExternalService)
			}
			return out.Candidates[0].Content.Parts[0].Text, nil
		}

		_ = json.Unmarshal(respBody, &out)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("provider returned %d: %s", resp.StatusCode, out.Error.Message)
			continue
		}
		return "", fmt.Errorf("%w: provider returned %d: %s", shared.ErrExternalService, resp.StatusCode, out.Error.Message)
	}
	return "", fmt.Errorf("%w: %d attempts failed: %v", shared.ErrExternalService, c.cfg.MaxRetries, lastErr)
}
