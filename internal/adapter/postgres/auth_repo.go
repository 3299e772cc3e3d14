package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"photoshare/internal/domain"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = "id, first_name, last_name, location, description, occupation, login_name, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Location, &u.Description,
		&u.Occupation, &u.LoginName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLoginName retrieves a user by exact login name.
func (d *DB) GetByLoginName(ctx context.Context, loginName string) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE login_name = $1",
		loginName,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// Create inserts a new user. The unique constraint on login_name decides
// concurrent registrations.
func (d *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	created, err := scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING "+userColumns,
		u.ID, u.FirstName, u.LastName, u.Location, u.Description, u.Occupation,
		u.LoginName, u.PasswordHash, u.CreatedAt.UTC(),
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateLogin
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// UpdatePassword replaces the password hash of the user with id.
func (d *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns every user in creation order.
func (d *DB) List(ctx context.Context) ([]domain.User, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		s.Token, s.User.ID, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByToken retrieves a session by token with its user summary.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT s.token, s.expires_at, s.created_at, u.id, u.first_name, u.last_name, u.login_name
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1`,
		token,
	).Scan(&s.Token, &s.ExpiresAt, &s.CreatedAt, &s.User.ID, &s.User.FirstName, &s.User.LastName, &s.User.LoginName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	if _, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= $1", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
