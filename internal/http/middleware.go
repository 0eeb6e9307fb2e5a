package httpserver

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wifinder/wifinder/internal/metrics"
)

// apiKeyHeader carries the pre-shared key required on every application
// route. Header lookup is case-insensitive.
const apiKeyHeader = "x-api-key"

// statusWriter captures the status code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireAPIKey rejects requests without the pre-shared key: 401 when
// the header is absent, 403 when it does not match.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			s.respondError(w, http.StatusUnauthorized, "API key is missing")
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Auth.APIKey)) != 1 {
			s.respondError(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// instrument records request count and latency, labelled by the chi
// route pattern so /point/1 and /point/2 share a series.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		metrics.RecordRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// handleRateLimited answers requests the limiter turned away.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RecordRateLimitHit(routePattern(r))
	s.logger.Warn().
		Str("remote", r.RemoteAddr).
		Str("path", r.URL.Path).
		Msg("rate limit exceeded")
	s.respondError(w, http.StatusTooManyRequests, msgRateLimited)
}

// routePattern returns the matched chi pattern, falling back to the raw
// path for requests that never reached the router.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
