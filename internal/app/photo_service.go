package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"photoshare/internal/domain"

	"github.com/google/uuid"
)

// MaxUploadBytes caps the size of an uploaded photo.
const MaxUploadBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AllowedImageType reports whether contentType may be uploaded.
func AllowedImageType(contentType string) bool {
	return allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// unknownAuthor stands in for a comment author that no longer resolves.
var unknownAuthor = CommentAuthor{FirstName: "Unknown", LastName: "User"}

// CommentAuthor is the joined author of a comment. ID is null when the
// author could not be resolved.
type CommentAuthor struct {
	ID        *string `json:"_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}

// PhotoComment is a comment with its author joined in.
type PhotoComment struct {
	ID       string        `json:"_id"`
	Body     string        `json:"comment"`
	DateTime time.Time     `json:"date_time"`
	User     CommentAuthor `json:"user"`
}

// PhotoView is a photo as returned to clients.
type PhotoView struct {
	ID          string         `json:"_id"`
	UserID      string         `json:"user_id"`
	FileName    string         `json:"file_name"`
	Description string         `json:"description"`
	DateTime    time.Time      `json:"date_time"`
	Comments    []PhotoComment `json:"comments"`
}

// PhotoRef identifies the photo a comment belongs to.
type PhotoRef struct {
	ID       string `json:"_id"`
	FileName string `json:"file_name"`
	UserID   string `json:"user_id"`
}

// UserComment is a comment listed on its author's page.
type UserComment struct {
	ID       string    `json:"_id"`
	Body     string    `json:"comment"`
	DateTime time.Time `json:"date_time"`
	Photo    PhotoRef  `json:"photo"`
}

// UploadInput carries an uploaded image.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
	Description  string
}

// PhotoService encapsulates photo and comment use cases.
type PhotoService struct {
	photos domain.PhotoRepository
	users  domain.UserRepository
	blobs  domain.BlobStore
	now    func() time.Time
}

// NewPhotoService creates a PhotoService backed by the given ports.
func NewPhotoService(photos domain.PhotoRepository, users domain.UserRepository, blobs domain.BlobStore) *PhotoService {
	return &PhotoService{photos: photos, users: users, blobs: blobs, now: time.Now}
}

// CreatePhoto records a photo for ownerID, which must be an existing user.
func (s *PhotoService) CreatePhoto(ctx context.Context, ownerID, fileName, description string) (*domain.Photo, error) {
	if _, err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if fileName == "" {
		return nil, domain.Validation("No photo uploaded")
	}
	return s.photos.Create(ctx, &domain.Photo{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		FileName:    fileName,
		Description: strings.TrimSpace(description),
		DateTime:    s.now(),
		Comments:    []domain.Comment{},
	})
}

// Upload stores the image through the blob store and records the photo.
func (s *PhotoService) Upload(ctx context.Context, owner domain.SessionUser, in UploadInput) (*domain.Photo, error) {
	if in.Body == nil {
		return nil, domain.Validation("No photo uploaded")
	}
	if !AllowedImageType(in.ContentType) {
		return nil, domain.Validation("Invalid file type. Only JPEG, PNG, GIF, WEBP allowed.")
	}
	if in.Size > MaxUploadBytes {
		return nil, domain.Validation("File too large. Maximum size is 10MB.")
	}

	name, err := s.blobs.Save(ctx, in.OriginalName, in.ContentType, in.Body, in.Size)
	if err != nil {
		return nil, fmt.Errorf("save blob: %w", err)
	}
	photo, err := s.CreatePhoto(ctx, owner.ID, name, in.Description)
	if err != nil {
		// The record was never written, so nothing can reference the blob.
		if derr := s.blobs.Delete(ctx, name); derr != nil {
			return nil, errors.Join(err, fmt.Errorf("delete blob: %w", derr))
		}
		return nil, err
	}
	return photo, nil
}

// PhotosOfUser returns the owner's photos with comment authors joined in.
func (s *PhotoService) PhotosOfUser(ctx context.Context, ownerID string) ([]PhotoView, error) {
	if _, err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	authors := newAuthorCache(s.users)
	out := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		view := PhotoView{
			ID:          p.ID,
			UserID:      p.UserID,
			FileName:    p.FileName,
			Description: p.Description,
			DateTime:    p.DateTime,
			Comments:    make([]PhotoComment, 0, len(p.Comments)),
		}
		for _, c := range p.Comments {
			view.Comments = append(view.Comments, PhotoComment{
				ID:       c.ID,
				Body:     c.Body,
				DateTime: c.DateTime,
				User:     authors.lookup(ctx, c.UserID),
			})
		}
		out = append(out, view)
	}
	return out, nil
}

// AddComment appends body to the photo as author. The reply carries the
// session user rather than a fresh lookup.
func (s *PhotoService) AddComment(ctx context.Context, photoID string, author domain.SessionUser, body string) (*PhotoComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyComment
	}
	if !ValidID(photoID) {
		return nil, domain.ErrPhotoNotFound
	}

	c := domain.Comment{
		ID:       uuid.NewString(),
		Body:     body,
		DateTime: s.now(),
		UserID:   author.ID,
	}
	if err := s.photos.AppendComment(ctx, photoID, c); err != nil {
		return nil, err
	}

	summary := author.Summary()
	return &PhotoComment{
		ID:       c.ID,
		Body:     c.Body,
		DateTime: c.DateTime,
		User:     CommentAuthor{ID: &summary.ID, FirstName: summary.FirstName, LastName: summary.LastName},
	}, nil
}

// CommentsOfUser scans every photo for comments written by userID.
func (s *PhotoService) CommentsOfUser(ctx context.Context, userID string) ([]UserComment, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := []UserComment{}
	for _, p := range photos {
		for _, c := range p.Comments {
			if c.UserID != userID {
				continue
			}
			out = append(out, UserComment{
				ID:       c.ID,
				Body:     c.Body,
				DateTime: c.DateTime,
				Photo:    PhotoRef{ID: p.ID, FileName: p.FileName, UserID: p.UserID},
			})
		}
	}
	return out, nil
}

// OpenImage returns the stored content for a generated file name.
func (s *PhotoService) OpenImage(ctx context.Context, name string) (io.ReadCloser, string, error) {
	return s.blobs.Open(ctx, name)
}

func (s *PhotoService) requireUser(ctx context.Context, id string) (*domain.User, error) {
	if !ValidID(id) {
		return nil, domain.ErrInvalidID
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// authorCache memoizes author lookups for the duration of one request.
type authorCache struct {
	users domain.UserRepository
	seen  map[string]CommentAuthor
}

func newAuthorCache(users domain.UserRepository) *authorCache {
	return &authorCache{users: users, seen: make(map[string]CommentAuthor)}
}

func (c *authorCache) lookup(ctx context.Context, id string) CommentAuthor {
	if a, ok := c.seen[id]; ok {
		return a
	}
	a := unknownAuthor
	if user, err := c.users.GetByID(ctx, id); err == nil && user != nil {
		uid := user.ID
		a = CommentAuthor{ID: &uid, FirstName: user.FirstName, LastName: user.LastName}
	}
	c.seen[id] = a
	return a
}
