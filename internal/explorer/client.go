// Package explorer provides clients for Etherscan-compatible block explorer
// APIs: RouteScan for source lookups and BeraScan for verification submissions.
package explorer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pendergraft/berarelay/internal/observability/metrics"
)

// Errors returned by explorer clients
var (
	// ErrEmptyResult means the lookup returned no result element
	ErrEmptyResult = errors.New("lookup returned no result")
	// ErrRejected means the verification service answered with a non-success status
	ErrRejected = errors.New("verification rejected")
)

// maxErrorBody caps how much of a failed response body ends up in an error
const maxErrorBody = 1024

// HTTPError is returned for non-2xx responses
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.Body)
}

// Option configures a client
type Option func(*options)

type options struct {
	limiter *rate.Limiter
	logger  *slog.Logger
	timeout time.Duration
}

// WithLimiter shares a rate limiter across clients
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithLogger sets the logger used for request logging
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// newHTTPClient applies options and returns an instrumented client for service
func newHTTPClient(service string, opts []Option) (*http.Client, *slog.Logger) {
	o := options{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	client := &http.Client{
		Timeout:   o.timeout,
		Transport: wrapTransport(metrics.Transport(nil, service), o.limiter, o.logger, service),
	}
	return client, o.logger
}

// readBody reads a response body and turns non-2xx responses into *HTTPError
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: snippet}
	}
	return body, nil
}
