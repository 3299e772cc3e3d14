// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// User represents a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Location     string
	Description  string
	Occupation   string
	LoginName    string
	PasswordHash string
	CreatedAt    time.Time
}

// UserSummary is the public directory entry for a user.
type UserSummary struct {
	ID        string `json:"_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserProfile is the detail view of a user.
type UserProfile struct {
	ID          string `json:"_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Occupation  string `json:"occupation"`
}

// SessionUser is the projection of a User kept in a session and returned to clients.
type SessionUser struct {
	ID        string `json:"_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	LoginName string `json:"login_name"`
}

// Summary returns the directory entry for u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// Profile returns the profile fields of u.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Location:    u.Location,
		Description: u.Description,
		Occupation:  u.Occupation,
	}
}

// SessionUser returns the session projection of u.
func (u *User) SessionUser() SessionUser {
	return SessionUser{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, LoginName: u.LoginName}
}

// Summary drops the login name from a session projection.
func (s SessionUser) Summary() UserSummary {
	return UserSummary{ID: s.ID, FirstName: s.FirstName, LastName: s.LastName}
}

// Session represents an active user session.
type Session struct {
	Token     string
	User      SessionUser
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// UserRepository defines the port for user persistence operations.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	GetByLoginName(ctx context.Context, loginName string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// Create inserts u and returns ErrDuplicateLogin when the login name is taken.
	// Uniqueness is enforced by the store itself.
	Create(ctx context.Context, u *User) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context) ([]User, error)
}

// SessionRepository defines the port for session persistence operations.
// GetByToken returns (nil, nil) when the token is unknown.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
