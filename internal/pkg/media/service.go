package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
)

var ErrNotFound = errors.New("media not found")

// Service ingests uploads into the media library.
type Service struct {
	db       *gorm.DB
	store    Store
	maxBytes int64
	now      func() time.Time
}

func NewService(db *gorm.DB, store Store, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{db: db, store: store, maxBytes: maxBytes, now: time.Now}
}

// Ingest validates an uploaded image, stores it with a WebP thumbnail and
// records it in the library.
func (s *Service) Ingest(ctx context.Context, name string, data []byte, uploadedBy uint) (*models.Media, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	contentType, ext, err := DetectType(name, data)
	if err != nil {
		return nil, err
	}
	info, err := Process(data, contentType)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(uuid.NewString(), ext, s.now())
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, err
	}
	thumbKey := ThumbnailKey(key)
	thumbURL, err := s.store.Put(ctx, thumbKey, "image/webp", info.Thumbnail)
	if err != nil {
		s.cleanup(ctx, key)
		return nil, err
	}

	m := &models.Media{
		Name:         displayName(name),
		Key:          key,
		URL:          url,
		ThumbnailKey: thumbKey,
		ThumbnailURL: thumbURL,
		Storage:      s.store.Name(),
		ContentType:  contentType,
		Size:         int64(len(data)),
		Width:        info.Width,
		Height:       info.Height,
		TakenAt:      info.TakenAt,
		UploadedBy:   uploadedBy,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		s.cleanup(ctx, key, thumbKey)
		return nil, fmt.Errorf("store media: %w", err)
	}

	metrics.MediaUploadBytes.Observe(float64(m.Size))
	log.Infof("[Media] Stored %s (%dx%d, %d bytes) in %s", m.Key, m.Width, m.Height, m.Size, m.Storage)
	return m, nil
}

// Delete removes both objects and the library entry.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var m models.Media
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	for _, key := range []string{m.Key, m.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Delete(&m).Error
}

// List returns one page of the library, newest first, and the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]models.Media, int64, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Media{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Media
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error
	return items, total, err
}

func (s *Service) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Warnf("[Media] Failed to remove orphaned object %s: %v", key, err)
		}
	}
}

func displayName(name string) string {
	base := strings.TrimSpace(filepath.Base(name))
	if base == "" || base == "." || base == "/" {
		return "upload"
	}
	return base
}
