package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/mediahub/backend/pkg/response"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var (
	ErrMediaIDRequired = response.NewBadRequest("no id provided")
	ErrMediaNotFound   = response.NewNotFound("media not found")
)

// ReviewView is a review with its author's display fields resolved.
type ReviewView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	Email     *string   `json:"email"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaDetail is a media row merged with its reviews and exact mean rating.
// AvgRating is null when there are no reviews.
type MediaDetail struct {
	models.Media
	Reviews   []ReviewView `json:"reviews"`
	AvgRating *float64     `json:"avgRating"`
}

type MediaService struct {
	db        *gorm.DB
	profiles  *ProfileService
	collation language.Tag
}

func NewMediaService(db *gorm.DB, profiles *ProfileService) *MediaService {
	return &MediaService{
		db:        db,
		profiles:  profiles,
		collation: language.Und,
	}
}

// WithCollation sets the language used to order equal-rated titles.
func (s *MediaService) WithCollation(tag language.Tag) *MediaService {
	s.collation = tag
	return s
}

// GetDetail loads one media item with its reviews, newest first. Review and
// profile lookups are best effort: on failure the page still renders with
// fewer details.
func (s *MediaService) GetDetail(ctx context.Context, id string) (*MediaDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMediaIDRequired
	}

	var media models.Media
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&media).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("fetch media %s: %w", id, err)
	}

	views := s.reviewViews(ctx, id)

	ratings := make([]int, len(views))
	for i, v := range views {
		ratings[i] = v.Rating
	}

	return &MediaDetail{
		Media:     media,
		Reviews:   views,
		AvgRating: MeanRating(ratings),
	}, nil
}

func (s *MediaService) reviewViews(ctx context.Context, mediaID string) []ReviewView {
	var reviews []models.Review
	if err := s.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		logger.Warn().Err(err).Str("media_id", mediaID).Msg("reviews unavailable, rendering without them")
		return []ReviewView{}
	}

	authorIDs := distinctAuthors(reviews)
	authors, err := s.profiles.LookupByIDs(ctx, authorIDs)
	if err != nil {
		logger.Warn().Err(err).Str("media_id", mediaID).Msg("author profiles unavailable")
		authors = map[string]models.Profile{}
	}

	views := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := ReviewView{
			ID:        r.ID,
			UserID:    r.UserID,
			Rating:    r.Rating,
			Text:      r.Text,
			CreatedAt: r.CreatedAt,
		}
		if p, ok := authors[r.UserID]; ok {
			view.Username = nonEmpty(p.Username)
			view.Email = nonEmpty(p.Email)
		}
		views = append(views, view)
	}
	return views
}

// List returns the whole catalog ranked by rounded mean rating. limit <= 0
// means no limit; truncation happens after ranking.
func (s *MediaService) List(ctx context.Context, limit int) ([]MediaListItem, error) {
	var media []models.Media
	if err := s.db.WithContext(ctx).Find(&media).Error; err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}

	items := make([]MediaListItem, 0, len(media))
	if len(media) == 0 {
		return items, nil
	}

	ids := make([]string, len(media))
	for i, m := range media {
		ids[i] = m.ID
	}

	var reviews []models.Review
	if err := s.db.WithContext(ctx).
		Select("media_id", "rating").
		Where("media_id IN ?", ids).
		Find(&reviews).Error; err != nil {
		// every item falls back to 0, leaving title order
		logger.Warn().Err(err).Msg("ratings unavailable, listing by title only")
		reviews = nil
	}

	tallies := tallyRatings(ids, reviews)
	for _, m := range media {
		items = append(items, MediaListItem{
			Media:     m,
			AvgRating: tallies[m.ID].average(),
		})
	}

	RankMedia(items, s.collation)
	return TopN(items, limit), nil
}

func distinctAuthors(reviews []models.Review) []string {
	seen := make(map[string]struct{}, len(reviews))
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		ids = append(ids, r.UserID)
	}
	return ids
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
