package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/mediahub/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrReviewFieldsRequired = response.NewBadRequest("media_id, user_id, rating and text are required")
	ErrRatingOutOfRange     = response.NewBadRequest("rating must be between 1 and 5")
	ErrAlreadyReviewed      = response.NewDuplicate("you have already reviewed this item")
	ErrDeleteParamsRequired = response.NewBadRequest("review id and user_id are required")
	ErrReviewNotFound       = response.NewNotFound("review not found or you are not allowed to delete it")
)

// SubmitReviewRequest is the body of POST /api/reviews.
type SubmitReviewRequest struct {
	MediaID string `json:"media_id"`
	UserID  string `json:"user_id"`
	Rating  int    `json:"rating"`
	Text    string `json:"text"`

	// Older clients still send denormalized author fields. They are
	// accepted and ignored; the author is resolved from profiles at read time.
	UserEmail string `json:"user_email,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Validate checks presence of every field before the rating range.
func (r *SubmitReviewRequest) Validate() error {
	if strings.TrimSpace(r.MediaID) == "" ||
		strings.TrimSpace(r.UserID) == "" ||
		r.Rating == 0 ||
		strings.TrimSpace(r.Text) == "" {
		return ErrReviewFieldsRequired
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}

// DeleteResult is the acknowledgement body of DELETE /api/reviews/:id.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ReviewService struct {
	db       *gorm.DB
	profiles *ProfileService
	policy   string
	now      func() time.Time
}

// NewReviewService builds the service; policy is one of
// config.MissingProfileReject or config.MissingProfileProvision.
func NewReviewService(db *gorm.DB, profiles *ProfileService, policy string) *ReviewService {
	return &ReviewService{
		db:       db,
		profiles: profiles,
		policy:   policy,
		now:      time.Now,
	}
}

// Policy returns the active missing-profile policy.
func (s *ReviewService) Policy() string {
	return s.policy
}

// Submit stores a new review. The media check, duplicate check, author check
// and insert run in one transaction, and the (media_id, user_id) unique index catches
// any concurrent insert that slips past the check.
func (s *ReviewService) Submit(ctx context.Context, req *SubmitReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("media_id", req.MediaID).
		Str("user_id", req.UserID).
		Int("rating", req.Rating).
		Int("text_length", len(req.Text)).
		Msg("review submission received")

	review := models.Review{
		MediaID: strings.TrimSpace(req.MediaID),
		UserID:  strings.TrimSpace(req.UserID),
		Rating:  req.Rating,
		Text:    req.Text,
	}
	provision := s.policy == config.MissingProfileProvision

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").Where("id = ?", review.MediaID).Take(&models.Media{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMediaNotFound
			}
			return fmt.Errorf("check media: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("media_id = ? AND user_id = ?", review.MediaID, review.UserID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyReviewed
		}

		if err := s.profiles.EnsureAuthor(tx, review.UserID, provision); err != nil {
			return err
		}

		review.CreatedAt = s.now().UTC()
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("insert review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("review_id", review.ID).
		Str("media_id", review.MediaID).
		Str("user_id", review.UserID).
		Msg("review created")
	return &review, nil
}

// Delete removes a review owned by userID. A review that does not exist and
// one owned by someone else are reported the same way.
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) (*DeleteResult, error) {
	reviewID = strings.TrimSpace(reviewID)
	userID = strings.TrimSpace(userID)
	if reviewID == "" || userID == "" {
		return nil, ErrDeleteParamsRequired
	}

	db := s.db.WithContext(ctx)

	var review models.Review
	if err := db.Where("id = ? AND user_id = ?", reviewID, userID).Take(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("lookup review %s: %w", reviewID, err)
	}

	result := db.Where("id = ? AND user_id = ?", reviewID, userID).Delete(&models.Review{})
	if result.Error != nil {
		return nil, fmt.Errorf("delete review %s: %w", reviewID, result.Error)
	}
	if result.RowsAffected == 0 {
		// removed between lookup and delete
		return nil, ErrReviewNotFound
	}

	logger.Info().Str("review_id", reviewID).Str("user_id", userID).Msg("review deleted")
	return &DeleteResult{Success: true, Message: "review deleted"}, nil
}
