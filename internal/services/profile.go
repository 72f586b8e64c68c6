package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/mediahub/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
)

var ErrAuthorNotFound = response.NewNotFound("user not found")

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetByID returns the profile or ErrAuthorNotFound.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// LookupByIDs fetches profiles for the given ids in one query, keyed by id.
func (s *ProfileService) LookupByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	lookup := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return lookup, nil
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).
		Select("id", "username", "email").
		Where("id IN ?", ids).
		Find(&profiles).Error; err != nil {
		return nil, err
	}

	for _, p := range profiles {
		lookup[p.ID] = p
	}
	return lookup, nil
}

// UsernameTaken reports whether any profile already uses username.
func (s *ProfileService) UsernameTaken(tx *gorm.DB, username string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Profile{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureAuthor checks that userID has a profile. With provision set, a
// missing profile is created from the identity record; otherwise it is
// ErrAuthorNotFound.
func (s *ProfileService) EnsureAuthor(tx *gorm.DB, userID string, provision bool) error {
	var profile models.Profile
	err := tx.Select("id").Where("id = ?", userID).Take(&profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if !provision {
		return ErrAuthorNotFound
	}

	_, err = s.ProvisionFromIdentity(tx, userID)
	return err
}

// ProvisionFromIdentity creates a profile for an identity that has none.
// The username is the email local part, or user_<id prefix> when that is
// unusable or already taken. An existing profile row is left untouched.
func (s *ProfileService) ProvisionFromIdentity(tx *gorm.DB, userID string) (*models.Profile, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}

	username := UsernameFromEmail(user.Email, user.ID)
	taken, err := s.UsernameTaken(tx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		username = FallbackUsername(user.ID)
	}

	profile := models.Profile{
		ID:        user.ID,
		Username:  username,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&profile).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("username", profile.Username).
		Msg("profile provisioned from identity")
	return &profile, nil
}

// UsernameFromEmail derives a display name from the email local part.
func UsernameFromEmail(email, userID string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if utf8.RuneCountInString(local) < minUsernameLength {
		return FallbackUsername(userID)
	}
	if runes := []rune(local); len(runes) > maxUsernameLength {
		local = string(runes[:maxUsernameLength])
	}
	return local
}

// FallbackUsername is user_ followed by the first eight id characters.
func FallbackUsername(userID string) string {
	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "user_" + prefix
}

// ValidateUsername trims and checks the sign-up username length.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", response.NewBadRequest("username is required")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return "", response.NewBadRequest("username must be between 3 and 50 characters")
	}
	return username, nil
}
