package server

import (
	"net/http"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

const msgUnauthorized = "missing or invalid api key"

// apiKeyRegistry holds the accepted api keys and counts how often each key was used
type apiKeyRegistry struct {
	keys *xsync.MapOf[string, *xsync.Counter]
}

// newAPIKeyRegistry creates a registry for the given keys, blank keys are ignored
func newAPIKeyRegistry(keys []string) *apiKeyRegistry {
	m := xsync.NewMapOf[string, *xsync.Counter]()
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			m.LoadOrStore(key, xsync.NewCounter())
		}
	}
	return &apiKeyRegistry{keys: m}
}

// enabled reports whether at least one key is configured
func (r *apiKeyRegistry) enabled() bool {
	return r.keys.Size() > 0
}

// validate reports whether key is accepted and counts the use
func (r *apiKeyRegistry) validate(key string) bool {
	counter, ok := r.keys.Load(key)
	if !ok {
		return false
	}
	counter.Inc()
	return true
}

// uses returns how often key was accepted
func (r *apiKeyRegistry) uses(key string) int64 {
	counter, ok := r.keys.Load(key)
	if !ok {
		return 0
	}
	return counter.Value()
}

// authenticated wraps a handler with the api key check. Without configured keys
// every request is let through.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keys.enabled() && !s.keys.validate(r.Header.Get(HeaderAPIKey)) {
			Logger.Infof("Rejected %s %s: %s (request %s)", r.Method, r.URL.Path, msgUnauthorized, requestID(r.Context()))
			writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next(w, r)
	})
}
