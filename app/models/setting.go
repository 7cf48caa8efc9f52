package models

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:191;not null;uniqueIndex" json:"key" validate:"required,min=1,max=191"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SettingSiteTitle             = "site_title"
	SettingSiteDescription       = "site_description"
	SettingSupportEmail          = "support_email"
	SettingCustomerPortalEnabled = "customer_portal_enabled"
)

// AppSettings represents the application settings structure
type AppSettings struct {
	SiteTitle             string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription       string `json:"site_description" validate:"max=500"`
	SupportEmail          string `json:"support_email" validate:"omitempty,email"`
	CustomerPortalEnabled bool   `json:"customer_portal_enabled"`
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// DefaultAppSettings returns the settings used before anything is stored.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		SiteTitle:             "Shuken",
		SiteDescription:       "Articles and memberships",
		CustomerPortalEnabled: true,
	}
}

// GetAppSettings returns a copy of the current application settings
func GetAppSettings() AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if appSettings == nil {
		return *DefaultAppSettings()
	}
	return *appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	loaded := DefaultAppSettings()

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case SettingSiteTitle:
			loaded.SiteTitle = setting.Value
		case SettingSiteDescription:
			loaded.SiteDescription = setting.Value
		case SettingSupportEmail:
			loaded.SupportEmail = setting.Value
		case SettingCustomerPortalEnabled:
			loaded.CustomerPortalEnabled = setting.Value == "true"
		}
	}

	settingsMu.Lock()
	appSettings = loaded
	settingsMu.Unlock()
	return nil
}

// SaveSettings validates and stores the settings, then swaps the in-memory copy.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	values := map[string]string{
		SettingSiteTitle:             settings.SiteTitle,
		SettingSiteDescription:       settings.SiteDescription,
		SettingSupportEmail:          settings.SupportEmail,
		SettingCustomerPortalEnabled: strconv.FormatBool(settings.CustomerPortalEnabled),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			var setting Setting
			err := tx.Where("setting_key = ?", key).First(&setting).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				setting = Setting{Key: key, Value: value, Type: getSettingType(key)}
				if err := tx.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			case err != nil:
				return fmt.Errorf("failed to query setting %s: %w", key, err)
			default:
				setting.Value = value
				if err := tx.Save(&setting).Error; err != nil {
					return fmt.Errorf("failed to update setting %s: %w", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	copied := *settings
	settingsMu.Lock()
	appSettings = &copied
	settingsMu.Unlock()
	return nil
}

func getSettingType(key string) string {
	switch key {
	case SettingCustomerPortalEnabled:
		return "boolean"
	default:
		return "string"
	}
}

// Validate validates the settings
func (s *AppSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
