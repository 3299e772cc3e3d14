package domain

import (
	"context"
	"time"
)

// Comment is owned by exactly one Photo.
type Comment struct {
	ID       string    `json:"_id"`
	Body     string    `json:"comment"`
	DateTime time.Time `json:"date_time"`
	UserID   string    `json:"user_id"`
}

// Photo is a stored picture with its comments in insertion order.
type Photo struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Comments    []Comment `json:"comments"`
}

// PhotoRepository is the port for photo and comment persistence.
type PhotoRepository interface {
	Create(ctx context.Context, p *Photo) (*Photo, error)
	// ListByOwner returns the owner's photos in creation order.
	ListByOwner(ctx context.Context, ownerID string) ([]Photo, error)
	// ListAll returns every photo in creation order.
	ListAll(ctx context.Context) ([]Photo, error)
	// AppendComment atomically adds c to the end of the photo's comments.
	// It returns ErrPhotoNotFound when the photo does not exist.
	AppendComment(ctx context.Context, photoID string, c Comment) error
}
