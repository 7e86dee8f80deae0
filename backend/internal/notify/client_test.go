package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		APIURL:         url,
		APIToken:       "test-token",
		RequestTimeout: 2 * time.Second,
		MaxRetries:     3,
		BulkSendDelay:  time.Millisecond,
	})
}

func TestSendSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("successful delivery", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("Authorization = %q", got)
			}
			var req providerRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if req.To != "919876543210" || req.Type != "text" {
				t.Errorf("payload = %+v", req)
			}
			json.NewEncoder(w).Encode(providerResponse{MessageID: "wamid.1"})
		}))
		defer srv.Close()

		res := newTestClient(srv.URL).SendSingle(ctx, "9876543210", "hello")
		if !res.Success || res.MessageID != "wamid.1" {
			t.Errorf("result = %+v, want success with message id", res)
		}
	})

	t.Run("invalid phone fails without calling the provider", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		res := newTestClient(srv.URL).SendSingle(ctx, "12345", "hello")
		if res.Success {
			t.Error("expected failure for an invalid phone")
		}
		if calls.Load() != 0 {
			t.Error("provider must not be called for an invalid phone")
		}
	})

	t.Run("unconfigured client reports a structured failure", func(t *testing.T) {
		res := NewClient(Config{}).SendSingle(ctx, "9876543210", "hello")
		if res.Success || res.Error == "" {
			t.Errorf("result = %+v, want a structured failure", res)
		}
	})

	t.Run("retries on 429 then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(providerResponse{Error: "rate limited"})
				return
			}
			json.NewEncoder(w).Encode(providerResponse{MessageID: "wamid.2"})
		}))
		defer srv.Close()

		res := newTestClient(srv.URL).SendSingle(ctx, "9876543210", "hello")
		if !res.Success {
			t.Errorf("result = %+v, want success after retry", res)
		}
		if calls.Load() != 2 {
			t.Errorf("provider called %d times, want 2", calls.Load())
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(providerResponse{Error: "unknown recipient"})
		}))
		defer srv.Close()

		res := newTestClient(srv.URL).SendSingle(ctx, "9876543210", "hello")
		if res.Success {
			t.Error("expected failure on 400")
		}
		if !strings.Contains(res.Error, "unknown recipient") {
			t.Errorf("error = %q, want the provider message surfaced", res.Error)
		}
		if calls.Load() != 1 {
			t.Errorf("provider called %d times, want 1", calls.Load())
		}
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		res := newTestClient(srv.URL).SendSingle(ctx, "9876543210", "hello")
		if res.Success {
			t.Error("expected failure after exhausting retries")
		}
		if calls.Load() != 3 {
			t.Errorf("provider called %d times, want 3", calls.Load())
		}
	})
}

func TestSendBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("continues past individual failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req providerRequest
			json.NewDecoder(r.Body).Decode(&req)
			calls.Add(1)
			if req.To == "919876543211" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(providerResponse{Error: "blocked"})
				return
			}
			json.NewEncoder(w).Encode(providerResponse{MessageID: "wamid." + req.To})
		}))
		defer srv.Close()

		out := newTestClient(srv.URL).SendBulk(ctx,
			[]string{"9876543210", "9876543211", "9876543212"}, "hello", time.Millisecond)

		if out.SuccessCount != 2 || out.FailureCount != 1 {
			t.Errorf("counts = %d/%d, want 2 successes and 1 failure", out.SuccessCount, out.FailureCount)
		}
		if len(out.Results) != 3 {
			t.Fatalf("got %d results, want all recipients attempted", len(out.Results))
		}
		if out.Results[1].Success || !out.Results[2].Success {
			t.Errorf("results = %+v, want the failure isolated to the second recipient", out.Results)
		}
		if calls.Load() != 3 {
			t.Errorf("provider called %d times, want 3", calls.Load())
		}
	})

	t.Run("invalid numbers count as failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(providerResponse{MessageID: "wamid.ok"})
		}))
		defer srv.Close()

		out := newTestClient(srv.URL).SendBulk(ctx, []string{"bad", "9876543210"}, "hello", time.Millisecond)
		if out.SuccessCount != 1 || out.FailureCount != 1 {
			t.Errorf("counts = %d/%d, want 1/1", out.SuccessCount, out.FailureCount)
		}
	})
}

func TestMessages(t *testing.T) {
	absence := AbsenceMessage("Asha R", "DBMS", "CSE", 3, "2026-03-02")
	for _, want := range []string{"Asha R", "DBMS", "CSE", "Semester 3", "2026-03-02", "ABSENT"} {
		if !strings.Contains(absence, want) {
			t.Errorf("absence message missing %q: %s", want, absence)
		}
	}

	summary := ClassSummaryMessage("DBMS", "CSE", 3, "2026-03-02", 18, 20, 90)
	for _, want := range []string{"18/20", "90.00%"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary message missing %q: %s", want, summary)
		}
	}
}
