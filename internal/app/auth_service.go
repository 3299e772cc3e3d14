// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"photoshare/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is the fixed lifetime of a session from issuance.
const SessionTTL = 24 * time.Hour

// ssoPasswordHash marks accounts provisioned through OIDC. bcrypt never
// produces this value, so password login stays impossible for them.
const ssoPasswordHash = "!sso"

// SSOLoginPrefix starts the login name of OIDC identities without a
// verified email. Registration rejects it.
const SSOLoginPrefix = "sso:"

// AuthService handles authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      SessionTTL,
		now:      time.Now,
	}
}

// WithTTL overrides the session lifetime.
func (s *AuthService) WithTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// WithClock replaces the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// TTL returns the session lifetime used for new sessions.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, loginName, password string) (*domain.Session, error) {
	if loginName == "" || password == "" {
		return nil, domain.Validation("Login name and password required")
	}

	user, err := s.users.GetByLoginName(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.open(ctx, user)
}

// LoginWithUser creates a session for a user already authenticated elsewhere
// (OIDC). Unknown login names are provisioned with an unusable password.
// A locally registered account is never bound to an external identity.
func (s *AuthService) LoginWithUser(ctx context.Context, loginName, firstName, lastName string) (*domain.Session, error) {
	if loginName == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.users.GetByLoginName(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.provision(ctx, loginName, firstName, lastName)
		if err != nil {
			return nil, err
		}
	}
	if user.PasswordHash != ssoPasswordHash {
		return nil, domain.ErrSSOAccountConflict
	}
	return s.open(ctx, user)
}

func (s *AuthService) provision(ctx context.Context, loginName, firstName, lastName string) (*domain.User, error) {
	if firstName == "" {
		firstName = loginName
	}
	if lastName == "" {
		lastName = "-"
	}
	candidate := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		LoginName:    loginName,
		PasswordHash: ssoPasswordHash,
		CreatedAt:    s.now(),
	}
	user, err := s.users.Create(ctx, candidate)
	if errors.Is(err, domain.ErrDuplicateLogin) {
		// Lost a race with a concurrent first login.
		user, err = s.users.GetByLoginName(ctx, loginName)
		if err == nil && user == nil {
			err = domain.ErrUserNotFound
		}
	}
	return user, err
}

func (s *AuthService) open(ctx context.Context, user *domain.User) (*domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		Token:     token,
		User:      user.SessionUser(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if _, err := s.Check(ctx, token); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, token)
}

// Check returns the user bound to token without modifying the session.
// Expired sessions are removed and reported as ErrNotLoggedIn.
func (s *AuthService) Check(ctx context.Context, token string) (*domain.SessionUser, error) {
	if token == "" {
		return nil, domain.ErrNotLoggedIn
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotLoggedIn
	}

	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, token)
		return nil, domain.ErrNotLoggedIn
	}

	user := session.User
	return &user, nil
}

// SweepExpired removes every expired session and reports how many were deleted.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// HashPassword returns a salted bcrypt hash of plaintext.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(plaintext, hash string) bool {
	if !strings.HasPrefix(hash, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
