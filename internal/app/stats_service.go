package app

import (
	"context"

	"photoshare/internal/domain"
)

// Counts is the per-user activity summary.
type Counts struct {
	PhotoCount   int `json:"photoCount"`
	CommentCount int `json:"commentCount"`
}

// StatsService computes activity counts by scanning the photo store.
type StatsService struct {
	users  domain.UserRepository
	photos domain.PhotoRepository
}

// NewStatsService creates a StatsService backed by the given repositories.
func NewStatsService(users domain.UserRepository, photos domain.PhotoRepository) *StatsService {
	return &StatsService{users: users, photos: photos}
}

// ComputeStats returns photo and comment counts for every known user.
// Photos and comments referencing unknown users are not counted.
func (s *StatsService) ComputeStats(ctx context.Context) (map[string]Counts, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*Counts, len(users))
	for _, u := range users {
		stats[u.ID] = &Counts{}
	}

	photos, err := s.photos.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range photos {
		if c, ok := stats[p.UserID]; ok {
			c.PhotoCount++
		}
		for _, cm := range p.Comments {
			if c, ok := stats[cm.UserID]; ok {
				c.CommentCount++
			}
		}
	}

	out := make(map[string]Counts, len(stats))
	for id, c := range stats {
		out[id] = *c
	}
	return out, nil
}
