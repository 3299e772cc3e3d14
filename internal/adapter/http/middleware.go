package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"photoshare/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userContextKey contextKey = "user"

const sessionCookie = "session"

// authMiddleware resolves the session cookie and rejects requests without a
// live session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			s.writeError(w, r, domain.ErrNotLoggedIn)
			return
		}

		user, err := s.auth.Check(r.Context(), cookie.Value)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionUser returns the user stored by authMiddleware.
func sessionUser(r *http.Request) (domain.SessionUser, bool) {
	u, ok := r.Context().Value(userContextKey).(domain.SessionUser)
	return u, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Info("request")
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.inFlight.Inc()
		defer s.metrics.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		s.metrics.observe(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// isClientError reports whether err carries a client-safe message.
func isClientError(err error) (*domain.Error, bool) {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de, true
	}
	return nil, false
}
