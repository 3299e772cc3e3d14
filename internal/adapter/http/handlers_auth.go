// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"photoshare/internal/app"
	"photoshare/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const stateCookie = "oauth_state"

// OIDCConfig holds the single sign-on provider. The zero value is disabled.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the issuer and prepares the authorization code flow.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if err := parseJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoginName string `json:"login_name"`
		Password  string `json:"password"`
	}
	if err := parseJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.auth.Login(r.Context(), req.LoginName, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, session.User)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		s.writeError(w, r, domain.ErrNotLoggedIn)
		return
	}
	if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sso_enabled": s.oidc.Enabled,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode, // the provider redirects back cross-site
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, MaxAge: -1, Path: "/"})

	token, err := s.oidc.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.WithError(err).Warn("sso token exchange failed")
		http.Error(w, "failed to exchange token", http.StatusBadGateway)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token", http.StatusBadGateway)
		return
	}

	verifier := s.oidc.Provider.Verifier(&oidc.Config{ClientID: s.oidc.OAuth2Config.ClientID})
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.WithError(err).Warn("sso id token rejected")
		http.Error(w, "failed to verify token", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Sub           string `json:"sub"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err = idToken.Claims(&claims); err != nil {
		http.Error(w, "failed to parse claims", http.StatusBadGateway)
		return
	}

	loginName := ssoLoginName(idToken.Issuer, claims.Sub, claims.Email, claims.EmailVerified)

	session, err := s.auth.LoginWithUser(r.Context(), loginName, claims.GivenName, claims.FamilyName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, s.opts.AllowedOrigin+"/", http.StatusFound)
}

// ssoLoginName picks the local login name for an OIDC identity. Only a
// verified email is trusted; otherwise the issuer-scoped subject is used,
// which registration never accepts.
func ssoLoginName(issuer, sub, email string, emailVerified bool) string {
	if email != "" && emailVerified {
		return email
	}
	return app.SSOLoginPrefix + issuer + ":" + sub
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
