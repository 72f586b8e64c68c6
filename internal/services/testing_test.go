package services

import (
	"testing"
	"time"

	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/utils"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return db
}

func createMedia(t *testing.T, db *gorm.DB, title string) models.Media {
	t.Helper()
	m := models.Media{Title: title, Description: title + " description", Year: 2000, Genre: "Rock"}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create media %q: %v", title, err)
	}
	return m
}

// createUser inserts an identity and, when username is non-empty, its profile.
func createUser(t *testing.T, db *gorm.DB, email, username string) models.User {
	t.Helper()
	hashed, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	u := models.User{Email: email, Password: hashed, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	if username != "" {
		p := models.Profile{ID: u.ID, Username: username, Email: email}
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("create profile %q: %v", username, err)
		}
	}
	return u
}

func createReview(t *testing.T, db *gorm.DB, mediaID, userID string, rating int, at time.Time) models.Review {
	t.Helper()
	r := models.Review{MediaID: mediaID, UserID: userID, Rating: rating, Text: "review text", CreatedAt: at}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	return r
}
