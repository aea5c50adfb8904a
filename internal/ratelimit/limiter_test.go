package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestClientKey(t *testing.T) {
	cases := []struct {
		name   string
		header http.Header
		want   string
	}{
		{name: "forwarded first hop", header: http.Header{"X-Forwarded-For": {"203.0.113.1, 10.0.0.1"}}, want: "203.0.113.1"},
		{name: "real ip", header: http.Header{"X-Real-Ip": {"198.51.100.7"}}, want: "198.51.100.7"},
		{name: "forwarded wins", header: http.Header{"X-Forwarded-For": {"203.0.113.9"}, "X-Real-Ip": {"198.51.100.7"}}, want: "203.0.113.9"},
		{name: "unknown", header: http.Header{}, want: UnknownClient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientKey(tc.header); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(Config{}, WithClock(func() time.Time { return now }))

	for i := 0; i < DefaultMax; i++ {
		decision, err := limiter.Allow(ctx, "203.0.113.1")
		if err != nil || !decision.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v %v", i+1, decision, err)
		}
		now = now.Add(time.Second)
	}

	decision, _ := limiter.Allow(ctx, "203.0.113.1")
	if decision.Allowed {
		t.Fatal("expected sixth request to be rejected")
	}
	if decision.RetryAfter != 55*time.Second {
		t.Fatalf("expected retry after 55s, got %s", decision.RetryAfter)
	}

	other, _ := limiter.Allow(ctx, "203.0.113.2")
	if !other.Allowed {
		t.Fatal("expected another client to be accepted")
	}

	now = now.Add(56 * time.Second)
	again, _ := limiter.Allow(ctx, "203.0.113.1")
	if !again.Allowed {
		t.Fatal("expected request after the oldest hit left the window to be accepted")
	}
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(Config{Window: time.Minute, Max: 2}, WithClock(func() time.Time { return now }))

	_, _ = limiter.Allow(ctx, "a")
	_, _ = limiter.Allow(ctx, "b")
	now = now.Add(3 * time.Minute)
	_, _ = limiter.Allow(ctx, "c")
	if limiter.Keys() != 1 {
		t.Fatalf("expected idle keys swept, got %d", limiter.Keys())
	}
}

func TestErrorCarriesRetryAfter(t *testing.T) {
	err := Error(Decision{RetryAfter: 1500 * time.Millisecond})
	if !goerrors.IsCategory(err, goerrors.CategoryRateLimit) {
		t.Fatalf("expected rate limit category, got %v", err)
	}
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) {
		t.Fatal("expected go-errors error")
	}
	if typed.Metadata["retry_after"] != 2 {
		t.Fatalf("expected retry_after 2, got %v", typed.Metadata["retry_after"])
	}
	if typed.Message != Message {
		t.Fatalf("unexpected message %q", typed.Message)
	}
	if RetryAfterSeconds(Decision{}) != 1 {
		t.Fatal("expected minimum retry of one second")
	}
}
