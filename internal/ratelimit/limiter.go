package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultWindow = time.Minute
	DefaultMax    = 5
	UnknownClient = "unknown"
	Message       = "Too many requests. Please try again later."
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits at most Max requests per key within a sliding Window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config bounds a limiter.
type Config struct {
	Window time.Duration
	Max    int
}

func (c Config) normalized() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	return c
}

// ClientKey derives the limiter key from proxy headers: the first hop of
// X-Forwarded-For, then X-Real-IP, else "unknown". Requests without either
// header share the "unknown" bucket.
func ClientKey(header http.Header) string {
	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(header.Get("X-Real-IP")); real != "" {
		return real
	}
	return UnknownClient
}

// Error converts a rejected decision into a rate limit error carrying the
// retry delay in whole seconds.
func Error(decision Decision) error {
	return goerrors.New(Message, goerrors.CategoryRateLimit).
		WithTextCode("RATE_LIMITED").
		WithCode(http.StatusTooManyRequests).
		WithMetadata(map[string]any{"retry_after": RetryAfterSeconds(decision)})
}

// RetryAfterSeconds rounds the retry delay up to whole seconds, minimum 1.
func RetryAfterSeconds(decision Decision) int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
