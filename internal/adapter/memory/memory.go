// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"photoshare/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	byLogin  map[string]*domain.User
	byID     map[string]*domain.User
	photos   []*domain.Photo
	photoIdx map[string]*domain.Photo
	sessions map[string]*domain.Session
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		byLogin:  make(map[string]*domain.User),
		byID:     make(map[string]*domain.User),
		photoIdx: make(map[string]*domain.Photo),
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.PhotoRepository = (*PhotoRepo)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByLoginName retrieves a user by exact login name.
func (db *DB) GetByLoginName(ctx context.Context, loginName string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u, ok := db.byLogin[loginName]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u, ok := db.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

// Create creates a new user. The login name check and the insert happen
// under one lock.
func (db *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.byLogin[u.LoginName]; ok {
		return nil, domain.ErrDuplicateLogin
	}
	if _, ok := db.byID[u.ID]; ok {
		return nil, domain.ErrDuplicateLogin
	}

	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.CreatedAt = cp.CreatedAt.UTC()
	db.users = append(db.users, &cp)
	db.byLogin[cp.LoginName] = &cp
	db.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

// UpdatePassword replaces the password hash of the user with id.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// List returns every user in creation order.
func (db *DB) List(ctx context.Context) ([]domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.User, 0, len(db.users))
	for _, u := range db.users {
		out = append(out, *u)
	}
	return out, nil
}

// --- PhotoRepository ---

// PhotoRepo implements photo persistence.
type PhotoRepo struct {
	db *DB
}

// NewPhotoRepo creates a new photo repository.
func (db *DB) NewPhotoRepo() *PhotoRepo {
	return &PhotoRepo{db: db}
}

// Create stores a new photo.
func (r *PhotoRepo) Create(ctx context.Context, p *domain.Photo) (*domain.Photo, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := clonePhoto(p)
	cp.DateTime = cp.DateTime.UTC()
	r.db.photos = append(r.db.photos, cp)
	r.db.photoIdx[cp.ID] = cp
	return clonePhoto(cp), nil
}

// ListByOwner returns the owner's photos in creation order.
func (r *PhotoRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Photo, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := []domain.Photo{}
	for _, p := range r.db.photos {
		if p.UserID == ownerID {
			out = append(out, *clonePhoto(p))
		}
	}
	return out, nil
}

// ListAll returns every photo in creation order.
func (r *PhotoRepo) ListAll(ctx context.Context) ([]domain.Photo, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]domain.Photo, 0, len(r.db.photos))
	for _, p := range r.db.photos {
		out = append(out, *clonePhoto(p))
	}
	return out, nil
}

// AppendComment adds c to the end of the photo's comments.
func (r *PhotoRepo) AppendComment(ctx context.Context, photoID string, c domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.photoIdx[photoID]
	if !ok {
		return domain.ErrPhotoNotFound
	}
	c.DateTime = c.DateTime.UTC()
	p.Comments = append(p.Comments, c)
	return nil
}

func clonePhoto(p *domain.Photo) *domain.Photo {
	cp := *p
	cp.Comments = make([]domain.Comment, len(p.Comments))
	copy(cp.Comments, p.Comments)
	return &cp
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *s
	r.db.sessions[s.Token] = &cp
	return nil
}

// GetByToken retrieves a session by token. Expiry is left to the caller.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now()
	var n int64
	for k, v := range r.db.sessions {
		if v.Expired(now) {
			delete(r.db.sessions, k)
			n++
		}
	}
	return n, nil
}
