package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"photoshare/internal/adapter/memory"
	"photoshare/internal/domain"
)

func TestStatsService_ComputeStats(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	photos := db.NewPhotoRepo()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := db.Create(ctx, &domain.User{ID: id, LoginName: id}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = photos.Create(ctx, &domain.Photo{ID: "p1", UserID: "a"})
	_, _ = photos.Create(ctx, &domain.Photo{ID: "p2", UserID: "a"})
	_, _ = photos.Create(ctx, &domain.Photo{ID: "p3", UserID: "b"})
	_ = photos.AppendComment(ctx, "p1", domain.Comment{ID: "c1", UserID: "b"})
	_ = photos.AppendComment(ctx, "p1", domain.Comment{ID: "c2", UserID: "b"})
	_ = photos.AppendComment(ctx, "p3", domain.Comment{ID: "c3", UserID: "a"})
	_ = photos.AppendComment(ctx, "p3", domain.Comment{ID: "c4", UserID: "deleted"})

	svc := NewStatsService(db, photos)
	got, err := svc.ComputeStats(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]Counts{
		"a": {PhotoCount: 2, CommentCount: 1},
		"b": {PhotoCount: 1, CommentCount: 2},
		"c": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	photoSum, commentSum := 0, 0
	for _, c := range got {
		photoSum += c.PhotoCount
		commentSum += c.CommentCount
	}
	if photoSum != 3 || commentSum != 3 {
		t.Errorf("expected sums 3/3, got %d/%d", photoSum, commentSum)
	}

	again, _ := svc.ComputeStats(ctx)
	if !reflect.DeepEqual(got, again) {
		t.Error("expected deterministic stats")
	}
}

func TestStatsService_ComputeStats_Empty(t *testing.T) {
	db := memory.New()
	got, err := NewStatsService(db, db.NewPhotoRepo()).ComputeStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty stats, got %+v", got)
	}
}

func TestStatsService_ComputeStats_StorageError(t *testing.T) {
	users := &mockUserRepo{
		listFn: func(ctx context.Context) ([]domain.User, error) { return nil, errors.New("down") },
	}
	db := memory.New()
	if _, err := NewStatsService(users, db.NewPhotoRepo()).ComputeStats(context.Background()); err == nil {
		t.Error("expected error")
	}
}
