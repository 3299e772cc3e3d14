// Package config loads server settings from defaults, an optional YAML file,
// a .env file and PHOTOSHARE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PHOTOSHARE_"

// Config holds runtime settings for the photoshare server.
type Config struct {
	Addr          string        `yaml:"addr"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	SessionTTL    time.Duration `yaml:"session_ttl"`

	// Storage is "postgres" or "memory".
	Storage     string `yaml:"storage"`
	DatabaseURL string `yaml:"database_url"`

	// SessionStore is "postgres", "redis" or "memory". Empty follows Storage.
	SessionStore  string `yaml:"session_store"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// BlobStore is "disk" or "s3".
	BlobStore      string `yaml:"blob_store"`
	ImagesDir      string `yaml:"images_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3Prefix       string `yaml:"s3_prefix"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SweepSchedule string `yaml:"sweep_schedule"`

	OIDCIssuer       string `yaml:"oidc_issuer"`
	OIDCClientID     string `yaml:"oidc_client_id"`
	OIDCClientSecret string `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string `yaml:"oidc_redirect_url"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		Addr:           ":3001",
		AllowedOrigin:  "http://localhost:3000",
		SessionTTL:     24 * time.Hour,
		Storage:        "memory",
		BlobStore:      "disk",
		ImagesDir:      "images",
		MaxUploadBytes: 10 << 20,
		S3Region:       "us-east-1",
		LogLevel:       "info",
		LogFormat:      "text",
		SweepSchedule:  "@every 1h",
	}
}

// Load builds a Config. path may be empty, in which case PHOTOSHARE_CONFIG
// is consulted. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	strs := map[string]*string{
		"ADDR":               &c.Addr,
		"ALLOWED_ORIGIN":     &c.AllowedOrigin,
		"STORAGE":            &c.Storage,
		"DATABASE_URL":       &c.DatabaseURL,
		"SESSION_STORE":      &c.SessionStore,
		"REDIS_ADDR":         &c.RedisAddr,
		"REDIS_PASSWORD":     &c.RedisPassword,
		"BLOB_STORE":         &c.BlobStore,
		"IMAGES_DIR":         &c.ImagesDir,
		"S3_BUCKET":          &c.S3Bucket,
		"S3_REGION":          &c.S3Region,
		"S3_ENDPOINT":        &c.S3Endpoint,
		"S3_ACCESS_KEY":      &c.S3AccessKey,
		"S3_SECRET_KEY":      &c.S3SecretKey,
		"S3_PREFIX":          &c.S3Prefix,
		"LOG_LEVEL":          &c.LogLevel,
		"LOG_FORMAT":         &c.LogFormat,
		"SWEEP_SCHEDULE":     &c.SweepSchedule,
		"OIDC_ISSUER":        &c.OIDCIssuer,
		"OIDC_CLIENT_ID":     &c.OIDCClientID,
		"OIDC_CLIENT_SECRET": &c.OIDCClientSecret,
		"OIDC_REDIRECT_URL":  &c.OIDCRedirectURL,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sCOOKIE_SECURE: %w", envPrefix, err)
		}
		c.CookieSecure = b
	}
	if v, ok := os.LookupEnv(envPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREDIS_DB: %w", envPrefix, err)
		}
		c.RedisDB = n
	}
	if v, ok := os.LookupEnv(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		c.MaxUploadBytes = n
	}
	if v, ok := os.LookupEnv(envPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSESSION_TTL: %w", envPrefix, err)
		}
		c.SessionTTL = d
	}
	return nil
}

// SessionBackend resolves the session store, defaulting to the main storage.
func (c *Config) SessionBackend() string {
	if c.SessionStore != "" {
		return c.SessionStore
	}
	return c.Storage
}

// OIDCEnabled reports whether single sign-on is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	switch c.SessionBackend() {
	case "memory":
	case "postgres":
		if c.Storage != "postgres" {
			errs = append(errs, errors.New("postgres sessions require postgres storage"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required for redis sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.SessionStore))
	}

	switch c.BlobStore {
	case "disk":
		if c.ImagesDir == "" {
			errs = append(errs, errors.New("images_dir is required for disk blobs"))
		}
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3_bucket is required for s3 blobs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob store %q", c.BlobStore))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if c.OIDCIssuer != "" && (c.OIDCClientID == "" || c.OIDCRedirectURL == "") {
		errs = append(errs, errors.New("oidc_client_id and oidc_redirect_url are required with oidc_issuer"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if strings.TrimSpace(c.AllowedOrigin) == "" {
		errs = append(errs, errors.New("allowed_origin is required"))
	}

	return errors.Join(errs...)
}
