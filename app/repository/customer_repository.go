package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
)

// customerRepository implements the CustomerRepository interface
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository instance
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID retrieves a customer together with their subscription
func (r *customerRepository) GetByID(id string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Preload("Subscription").Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Preload("Subscription").Where("email = ?", models.NormalizeEmail(email)).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Update(customer *models.Customer) error {
	customer.Email = models.NormalizeEmail(customer.Email)
	return r.db.Omit("Subscription").Save(customer).Error
}

// Delete removes the customer and their local subscription copy
func (r *customerRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Customer{}).Error
	})
}

func (r *customerRepository) List(offset, limit int) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.Preload("Subscription").Order("created_at DESC").Offset(offset).Limit(limit).Find(&customers).Error
	return customers, err
}

// Search matches email or name, case-insensitively
func (r *customerRepository) Search(query string, limit int) ([]models.Customer, error) {
	var customers []models.Customer
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.Preload("Subscription").
		Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like).
		Order("created_at DESC").Limit(limit).Find(&customers).Error
	return customers, err
}

func (r *customerRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Customer{}).Count(&count).Error
	return count, err
}

// CountSubscribed counts customers whose subscription grants access
func (r *customerRepository) CountSubscribed() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("status IN ?", []string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue}).
		Count(&count).Error
	return count, err
}
