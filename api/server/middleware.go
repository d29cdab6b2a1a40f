package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

// Headers set on every response
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPI       = "API"
	HeaderAPIKey    = "x-apikey"
)

type contextKey int

const requestIDKey contextKey = iota

// requestID returns the id of the request stored in ctx
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// --------------------------------------------------------------------------
// Middleware (request id, version, logging)
// --------------------------------------------------------------------------

// requestIDMiddleware reuses the X-Request-ID of the request or creates a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// versionMiddleware adds the API header to every response
func versionMiddleware(version string, next http.Handler) http.Handler {
	value := "dsolr/" + version
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderAPI, value)
		next.ServeHTTP(w, r)
	})
}

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap allows http.ResponseController to reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// loggerMiddleware logs every request and counts it by route and status
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// the mux stores the matched pattern in the request
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(`dsolr_api_requests_total{route=%q,status="%d"}`, route, rw.statusCode)).Inc()

		// Log the request
		duration := time.Since(start)
		Logger.Debugf("%s %s => %d took %s (request %s)", r.Method, r.URL.Path, rw.statusCode, duration, requestID(r.Context()))
	})
}
