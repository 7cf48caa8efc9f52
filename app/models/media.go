package models

import "time"

const (
	MediaStorageLocal = "local"
	MediaStorageS3    = "s3"
)

// Media is an uploaded image of the media library together with its
// generated thumbnail.
type Media struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Key          string     `gorm:"size:512;not null;uniqueIndex" json:"key"`
	URL          string     `gorm:"size:1024;not null" json:"url"`
	ThumbnailKey string     `gorm:"size:512" json:"thumbnail_key"`
	ThumbnailURL string     `gorm:"size:1024" json:"thumbnail_url"`
	Storage      string     `gorm:"size:20;not null" json:"storage"`
	ContentType  string     `gorm:"size:100;not null" json:"content_type"`
	Size         int64      `gorm:"not null" json:"size"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	TakenAt      *time.Time `gorm:"type:timestamp;default:null" json:"taken_at,omitempty"`
	UploadedBy   uint       `gorm:"index" json:"uploaded_by"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Media) TableName() string {
	return "media"
}
