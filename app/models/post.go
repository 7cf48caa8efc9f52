package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Post is an article of the public site, written in markdown.
type Post struct {
	ID               uint64         `gorm:"primaryKey" json:"id"`
	Title            string         `gorm:"size:255" json:"title" validate:"required,min=3,max=255"`
	Slug             string         `gorm:"uniqueIndex;size:255" json:"slug" validate:"required,min=3,max=255"`
	Excerpt          string         `gorm:"type:text" json:"excerpt" validate:"max=1000"`
	Content          string         `gorm:"type:text" json:"content" validate:"required"`
	Published        bool           `gorm:"not null" json:"published"`
	MembersOnly      bool           `gorm:"not null;default:false" json:"members_only"`
	FeaturedImageURL string         `gorm:"size:512" json:"featured_image_url" validate:"omitempty,max=512"`
	AuthorID         uint           `gorm:"index" json:"author_id"`
	Author           User           `gorm:"foreignKey:AuthorID" json:"author"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) Validate() error {
	return validator.New().Struct(p)
}
