package pricing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
)

// Store is the datastore surface of plan reconciliation. Methods taking a
// PriceChange persist the completed step together with the write.
type Store interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string, activeOnly bool) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product, expectedVersion uint) error
	DeleteProduct(ctx context.Context, id string) error
	CountSubscriptions(ctx context.Context, productID string) (int64, error)

	RecordChange(ctx context.Context, pc *models.PriceChange) error
	SaveChange(ctx context.Context, pc *models.PriceChange) error
	DeactivatePrice(ctx context.Context, pc *models.PriceChange) error
	InsertPrice(ctx context.Context, pc *models.PriceChange, price *models.Price) error
	CountActivePrices(ctx context.Context, productID, interval string) (int64, error)
	PendingChanges(ctx context.Context, olderThan time.Time, limit int) ([]models.PriceChange, error)
	PendingChangesFor(ctx context.Context, productID string) ([]models.PriceChange, error)
	GetChange(ctx context.Context, id string) (*models.PriceChange, error)
	ListChanges(ctx context.Context, productID string, limit int) ([]models.PriceChange, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a pricing store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Prices", "active = ?", true).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

func (s *gormStore) GetProduct(ctx context.Context, id string, activeOnly bool) (*models.Product, error) {
	q := s.db.WithContext(ctx)
	if activeOnly {
		q = q.Preload("Prices", "active = ?", true)
	} else {
		q = q.Preload("Prices", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})
	}

	var p models.Product
	if err := q.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Omit("Prices").Create(p).Error
}

// UpdateProduct writes the descriptor and bumps the version, provided the
// stored version still equals expectedVersion.
func (s *gormStore) UpdateProduct(ctx context.Context, p *models.Product, expectedVersion uint) error {
	tx := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", p.ID, expectedVersion).
		Updates(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"version":     gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrStaleVersion
	}
	p.Version = expectedVersion + 1
	return nil
}

func (s *gormStore) DeleteProduct(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.PriceChange{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Price{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Product{}).Error
	})
}

func (s *gormStore) CountSubscriptions(ctx context.Context, productID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("product_id = ?", productID).
		Count(&n).Error
	return n, err
}

func (s *gormStore) RecordChange(ctx context.Context, pc *models.PriceChange) error {
	return s.db.WithContext(ctx).Create(pc).Error
}

func (s *gormStore) SaveChange(ctx context.Context, pc *models.PriceChange) error {
	return s.db.WithContext(ctx).Save(pc).Error
}

func (s *gormStore) DeactivatePrice(ctx context.Context, pc *models.PriceChange) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Price{}).
			Where("id = ?", pc.OldPriceID).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.PriceChange{}).
			Where("id = ?", pc.ID).
			Update("local_deactivated", true).Error
	})
	if err != nil {
		return err
	}
	pc.LocalDeactivated = true
	return nil
}

func (s *gormStore) InsertPrice(ctx context.Context, pc *models.PriceChange, price *models.Price) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(price).Error; err != nil {
			return err
		}
		return tx.Model(&models.PriceChange{}).
			Where("id = ?", pc.ID).
			Update("local_created", true).Error
	})
	if err != nil {
		return err
	}
	pc.LocalCreated = true
	return nil
}

func (s *gormStore) CountActivePrices(ctx context.Context, productID, interval string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Price{}).
		Where("product_id = ? AND billing_interval = ? AND active = ?", productID, interval, true).
		Count(&n).Error
	return n, err
}

func (s *gormStore) PendingChanges(ctx context.Context, olderThan time.Time, limit int) ([]models.PriceChange, error) {
	var changes []models.PriceChange
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.PriceChangeStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

func (s *gormStore) PendingChangesFor(ctx context.Context, productID string) ([]models.PriceChange, error) {
	var changes []models.PriceChange
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, models.PriceChangeStatusPending).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}

func (s *gormStore) GetChange(ctx context.Context, id string) (*models.PriceChange, error) {
	var pc models.PriceChange
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&pc).Error; err != nil {
		return nil, err
	}
	return &pc, nil
}

func (s *gormStore) ListChanges(ctx context.Context, productID string, limit int) ([]models.PriceChange, error) {
	var changes []models.PriceChange
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}
