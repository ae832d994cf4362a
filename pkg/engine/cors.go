// CORS middleware for the mock server.

package engine

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/todomock/todomock/pkg/config"
)

// CORSMiddleware wraps an http.Handler with CORS handling based on
// configuration. The emulated backend answered every origin, so the default
// configuration is wildcard.
type CORSMiddleware struct {
	handler http.Handler
	config  *config.CORSConfig
}

// NewCORSMiddleware creates a CORS middleware. If cfg is nil the allow-all
// default is used.
func NewCORSMiddleware(handler http.Handler, cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil {
		cfg = config.DefaultCORSConfig()
	}
	return &CORSMiddleware{handler: handler, config: cfg}
}

// ServeHTTP implements the http.Handler interface.
func (m *CORSMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !m.config.Enabled {
		m.handler.ServeHTTP(w, r)
		return
	}

	origin := r.Header.Get("Origin")
	allowOrigin := m.config.AllowOriginValue(origin)

	if allowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)

		methods := m.config.AllowMethods
		if len(methods) == 0 {
			methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}
		}
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))

		headers := m.config.AllowHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"}
		}
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))

		maxAge := m.config.MaxAge
		if maxAge <= 0 {
			maxAge = 86400
		}
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	}

	// Preflight requests are answered here and never reach the API handler.
	if r.Method == http.MethodOptions {
		if allowOrigin != "" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusForbidden)
		}
		return
	}

	m.handler.ServeHTTP(w, r)
}
