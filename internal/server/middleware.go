package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"procodus.dev/device-monitor/internal/auth"
)

type contextKey struct{ name string }

// userIDKey carries the authenticated user id through the request
// context once requireAuth has verified the token.
var userIDKey = &contextKey{"user-id"}

// userID returns the authenticated user id stored by requireAuth.
func userID(r *http.Request) uint {
	id, _ := r.Context().Value(userIDKey).(uint)
	return id
}

// requireAuth wraps a handler with the authentication guard: the
// identity cookie is extracted and verified, and on failure the
// request is redirected to the login page with a message naming the
// cause. The wrapped handler never runs for unauthenticated requests.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			s.recordAuthOutcome("missing")
			s.redirect(w, r, "/auth/login", flashWarning, "Please log in to continue.")
			return
		}

		uid, err := s.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				s.recordAuthOutcome("expired")
				s.redirect(w, r, "/auth/login", flashWarning, "Your session has expired. Please log in again.")
			default:
				s.recordAuthOutcome("invalid")
				s.redirect(w, r, "/auth/login", flashWarning, "Invalid token. Please log in again.")
			}
			return
		}

		s.recordAuthOutcome("ok")
		ctx := context.WithValue(r.Context(), userIDKey, uid)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) recordAuthOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// withMetrics records request counts, durations and in-flight gauge
// for every route.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		inFlight := s.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, path)
		inFlight.Inc()
		defer inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	})
}
