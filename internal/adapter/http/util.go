package adapthttp

import (
	"net/http"
	"time"

	"photoshare/internal/domain"

	"github.com/goccy/go-json"
)

const serverError = "Server error"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status. Only authorization failures
// get 401; every other client error is a 400.
func statusFor(err error) int {
	de, ok := isClientError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if de.Kind == domain.KindAuthorization {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// writeError responds with {"error": msg}. Unexpected failures are logged
// and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := serverError
	if de, ok := isClientError(err); ok {
		msg = de.Message
	} else {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("Invalid request body")
	}
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
