package main

import (
	"context"
	"fmt"

	"photoshare/internal/adapter/blob"
	"photoshare/internal/adapter/memory"
	"photoshare/internal/adapter/postgres"
	redisstore "photoshare/internal/adapter/redis"
	"photoshare/internal/config"
	"photoshare/internal/domain"

	"github.com/sirupsen/logrus"
)

// stores bundles the repository implementations selected by config.
type stores struct {
	users    domain.UserRepository
	photos   domain.PhotoRepository
	sessions domain.SessionRepository
	blobs    domain.BlobStore

	pg      *postgres.DB
	closers []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openPostgres(cfg *config.Config) (*postgres.DB, error) {
	pg, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return pg, nil
}

func openStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stores, error) {
	st := &stores{}
	ok := false
	defer func() {
		if !ok {
			st.Close()
		}
	}()

	var mem *memory.DB
	switch cfg.Storage {
	case "postgres":
		pg, err := openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		st.pg = pg
		st.closers = append(st.closers, pg.Close)
		st.users = pg
		st.photos = postgres.NewPhotoRepo(pg)
	default:
		log.Warn("using in-memory storage; data is lost on restart")
		mem = memory.New()
		st.users = mem
		st.photos = mem.NewPhotoRepo()
	}

	switch cfg.SessionBackend() {
	case "postgres":
		st.sessions = postgres.NewSessionRepo(st.pg)
	case "redis":
		rs, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, rs.Close)
		st.sessions = rs
	default:
		if mem == nil {
			mem = memory.New()
		}
		st.sessions = mem.NewSessionRepo()
	}

	switch cfg.BlobStore {
	case "s3":
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		st.blobs = s3
	default:
		disk, err := blob.NewDiskStore(cfg.ImagesDir)
		if err != nil {
			return nil, err
		}
		st.blobs = disk
	}

	ok = true
	return st, nil
}
