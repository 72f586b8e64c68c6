package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a single rating of a media item. At most one per (media, user),
// enforced by idx_reviews_media_user.
type Review struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MediaID   string    `gorm:"size:36;not null;uniqueIndex:idx_reviews_media_user,priority:1" json:"media_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_reviews_media_user,priority:2;index" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Media *Media `gorm:"foreignKey:MediaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
