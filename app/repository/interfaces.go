package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
)

// UserRepository defines the interface for staff user operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// CustomerRepository defines the interface for customer operations
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id string) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	Update(customer *models.Customer) error
	Delete(id string) error
	List(offset, limit int) ([]models.Customer, error)
	Search(query string, limit int) ([]models.Customer, error)
	Count() (int64, error)
	CountSubscribed() (int64, error)
}

// PostRepository defines the interface for article operations
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint64) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	GetPublishedBySlug(slug string) (*models.Post, error)
	GetPublished(offset, limit int) ([]models.Post, error)
	GetAll(offset, limit int) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id uint64) error
	Count() (int64, error)
	CountPublished() (int64, error)
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uint64) (bool, error)
}

// SettingRepository defines the interface for settings operations
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Customer CustomerRepository
	Post     PostRepository
	Setting  SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Customer: NewCustomerRepository(db),
		Post:     NewPostRepository(db),
		Setting:  NewSettingRepository(db),
	}
}
