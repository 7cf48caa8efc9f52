package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PhilDL/shuken/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	FindCustomerByStripeID(stripeCustomerID string) (*models.Customer, error)
	FindPrice(priceID string) (*models.Price, error)
	UpsertSubscription(sub *models.Subscription) error
	DeleteSubscription(subscriptionID string) (bool, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindCustomerByStripeID(stripeCustomerID string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) FindPrice(priceID string) (*models.Price, error) {
	var p models.Price
	if err := r.db.Where("id = ?", priceID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertSubscription stores the subscription as the customer's only one.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ? AND id <> ?", sub.CustomerID, sub.ID).
			Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_id",
				"product_id",
				"price_id",
				"billing_interval",
				"status",
				"current_period_start",
				"current_period_end",
				"cancel_at_period_end",
				"updated_at",
			}),
		}).Create(sub).Error
	})
}

func (r *gormRepository) DeleteSubscription(subscriptionID string) (bool, error) {
	tx := r.db.Where("id = ?", subscriptionID).Delete(&models.Subscription{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.BillingWebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}
