package postgres

import (
	"context"
	"fmt"

	"photoshare/internal/domain"

	"github.com/goccy/go-json"
)

const photoColumns = "id, user_id, file_name, description, date_time, comments"

// PhotoRepo implements photo persistence. Comments live in a JSONB array
// on the photo row.
type PhotoRepo struct {
	db *DB
}

// NewPhotoRepo wraps a DB as a PhotoRepository.
func NewPhotoRepo(db *DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

func scanPhoto(row interface{ Scan(...any) error }) (*domain.Photo, error) {
	var (
		p   domain.Photo
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.FileName, &p.Description, &p.DateTime, &raw); err != nil {
		return nil, err
	}
	p.Comments = []domain.Comment{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Comments); err != nil {
			return nil, fmt.Errorf("decode comments of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// Create stores a new photo.
func (r *PhotoRepo) Create(ctx context.Context, p *domain.Photo) (*domain.Photo, error) {
	comments := p.Comments
	if comments == nil {
		comments = []domain.Comment{}
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return nil, err
	}

	created, err := scanPhoto(r.db.sql.QueryRowContext(ctx,
		"INSERT INTO photos ("+photoColumns+") VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+photoColumns,
		p.ID, p.UserID, p.FileName, p.Description, p.DateTime.UTC(), string(raw),
	))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// ListByOwner returns the owner's photos in creation order.
func (r *PhotoRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Photo, error) {
	return r.list(ctx, "SELECT "+photoColumns+" FROM photos WHERE user_id = $1 ORDER BY seq", ownerID)
}

// ListAll returns every photo in creation order.
func (r *PhotoRepo) ListAll(ctx context.Context) ([]domain.Photo, error) {
	return r.list(ctx, "SELECT "+photoColumns+" FROM photos ORDER BY seq")
}

func (r *PhotoRepo) list(ctx context.Context, query string, args ...any) ([]domain.Photo, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []domain.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// AppendComment concatenates c onto the comments array in a single UPDATE,
// so the row lock serializes concurrent appends.
func (r *PhotoRepo) AppendComment(ctx context.Context, photoID string, c domain.Comment) error {
	c.DateTime = c.DateTime.UTC()
	raw, err := json.Marshal([]domain.Comment{c})
	if err != nil {
		return err
	}

	res, err := r.db.sql.ExecContext(ctx,
		"UPDATE photos SET comments = comments || $2::jsonb WHERE id = $1",
		photoID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrPhotoNotFound
	}
	return nil
}
