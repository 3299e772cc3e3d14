// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"photoshare/internal/adapter/postgres/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL and pings. Call Migrate before serving.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &DB{sql: s}, nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(s *sql.DB) *DB {
	return &DB{sql: s}
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	return goose.UpContext(ctx, db, ".")
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := gooseUp(ctx, d.sql); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
