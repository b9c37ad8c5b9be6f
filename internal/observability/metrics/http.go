// Package metrics provides Prometheus instrumentation for berarelay.
package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// transport wraps an http.RoundTripper to record explorer request metrics.
type transport struct {
	next    http.RoundTripper
	service string
}

// Transport returns an http.RoundTripper that records request counts and
// latency for the named explorer service.
func Transport(next http.RoundTripper, service string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !enabled {
		return next
	}
	return &transport{next: next, service: service}
}

// RoundTrip implements http.RoundTripper
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = statusClass(resp.StatusCode)
	}
	explorerRequestsTotal.WithLabelValues(t.service, req.Method, status).Inc()
	explorerDuration.WithLabelValues(t.service).Observe(time.Since(start).Seconds())

	return resp, err
}

// statusClass collapses status codes to "2xx", "4xx" etc. to keep label
// cardinality low.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}
