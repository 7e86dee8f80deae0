package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		semester int32
		from, to string
		want     string
	}{
		{"unbounded", "CSE", 3, "", "", "summary:CSE:3::"},
		{"date range", "ECE", 5, "2026-03-01", "2026-03-31", "summary:ECE:5:2026-03-01:2026-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.stream, tt.semester, tt.from, tt.to); got != tt.want {
				t.Errorf("Key = %s, want %s", got, tt.want)
			}
		})
	}
}

// A nil cache is the disabled configuration; every operation must be a safe
// no-op so callers never branch on it.
func TestNilCacheIsSafe(t *testing.T) {
	ctx := context.Background()
	var c *SummaryCache

	if c.Healthy(ctx) {
		t.Error("nil cache must not report healthy")
	}
	var dest struct{ N int }
	if c.Get(ctx, "summary:CSE:3::", &dest) {
		t.Error("nil cache must always miss")
	}
	c.Put(ctx, "summary:CSE:3::", dest)
	c.InvalidateStream(ctx, "CSE", 3)
}

func TestNewSummaryCacheDisabledWithoutAddr(t *testing.T) {
	if c := NewSummaryCache("", time.Minute); c != nil {
		t.Error("empty addr must disable the cache")
	}
}
