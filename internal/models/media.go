package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media is a catalog entity (a music group). Read-only through the API.
type Media struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Title       string    `gorm:"size:255;not null;index" json:"title" yaml:"title"`
	Description string    `gorm:"type:text" json:"description" yaml:"description"`
	Year        int       `json:"year" yaml:"year"`
	Genre       string    `gorm:"size:100" json:"genre" yaml:"genre"`
	Director    *string   `gorm:"size:255" json:"director" yaml:"director,omitempty"`
	Artist      *string   `gorm:"size:255" json:"artist" yaml:"artist,omitempty"`
	Members     *string   `gorm:"size:1000" json:"members" yaml:"members,omitempty"`
	CoverURL    *string   `gorm:"size:500" json:"cover_url" yaml:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

func (Media) TableName() string { return "media" }

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
