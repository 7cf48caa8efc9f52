package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PhilDL/shuken/internal/pkg/env"
)

const DefaultMaxBytes = 10 << 20

// Config holds media storage configuration
type Config struct {
	S3Enabled       bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicURL       string // Base URL objects are served from
	LocalDir        string
	LocalURL        string
	MaxBytes        int64
}

// LoadConfig loads media configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		S3Enabled:       env.GetEnv("S3_ENABLED", "false") == "true",
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicURL:       env.GetEnv("S3_PUBLIC_URL", ""),
		LocalDir:        env.GetEnv("MEDIA_DIR", "uploads"),
		LocalURL:        env.GetEnv("MEDIA_URL", "/uploads"),
		MaxBytes:        DefaultMaxBytes,
	}
	if v := env.GetEnv("MEDIA_MAX_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MEDIA_MAX_BYTES must be a positive number, got %q", v)
		}
		cfg.MaxBytes = n
	}

	// Validate required fields if S3 storage is enabled
	if cfg.S3Enabled {
		if cfg.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 storage is enabled")
		}
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 storage is enabled")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 storage is enabled")
		}
		if cfg.PublicURL == "" {
			cfg.PublicURL = defaultPublicURL(cfg)
		}
	}
	return cfg, nil
}

func defaultPublicURL(cfg *Config) string {
	if cfg.EndpointURL != "" {
		return strings.TrimRight(cfg.EndpointURL, "/") + "/" + cfg.BucketName
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
}

// ObjectKey generates a standardized object key for a media file
func ObjectKey(id, ext string, t time.Time) string {
	// Format: media/YYYY/MM/ID.ext
	return fmt.Sprintf("media/%04d/%02d/%s%s", t.Year(), int(t.Month()), id, ext)
}

// ThumbnailKey derives the thumbnail key of an object key.
func ThumbnailKey(key string) string {
	if i := strings.LastIndex(key, "."); i > strings.LastIndex(key, "/") {
		key = key[:i]
	}
	return strings.Replace(key, "media/", "media/thumbnails/", 1) + ".webp"
}
