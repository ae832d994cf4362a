package engine

import (
	"net/http"
	"time"
)

// LatencyMiddleware delays every response by a fixed duration before the
// wrapped handler runs, approximating the response times of the real
// backend. The delay respects request cancellation.
type LatencyMiddleware struct {
	handler http.Handler
	delay   time.Duration
}

// NewLatencyMiddleware wraps handler with a fixed artificial delay.
// A non-positive delay disables the middleware.
func NewLatencyMiddleware(handler http.Handler, delay time.Duration) *LatencyMiddleware {
	return &LatencyMiddleware{handler: handler, delay: delay}
}

// ServeHTTP implements the http.Handler interface.
func (m *LatencyMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(m.delay):
		}
	}
	m.handler.ServeHTTP(w, r)
}
