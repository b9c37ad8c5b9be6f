package explorer

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// loggingTransport logs every outbound explorer request using structured logging.
// The query string is never logged because it may carry an API key.
type loggingTransport struct {
	next    http.RoundTripper
	logger  *slog.Logger
	service string
}

// RoundTrip implements http.RoundTripper
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	attrs := []any{
		"service", t.service,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"duration", time.Since(start).String(),
	}
	if err != nil {
		t.logger.Debug("explorer request failed", append(attrs, "error", err)...)
		return nil, err
	}
	t.logger.Debug("explorer request", append(attrs, "status", resp.StatusCode, "bytes", resp.ContentLength)...)
	return resp, nil
}

// rateLimitTransport blocks until the shared token bucket allows a request.
// Explorer free tiers allow a handful of requests per second per key.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// NewLimiter creates a token bucket limiter allowing perSecond requests per
// second with a burst of one. A non-positive rate disables limiting.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// wrapTransport builds the outbound transport chain:
// logging -> rate limit -> base.
func wrapTransport(base http.RoundTripper, limiter *rate.Limiter, logger *slog.Logger, service string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = base
	if limiter != nil {
		rt = &rateLimitTransport{next: rt, limiter: limiter}
	}
	return &loggingTransport{next: rt, logger: logger, service: service}
}
