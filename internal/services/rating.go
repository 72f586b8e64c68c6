package services

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mediahub/backend/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MediaListItem is a catalog row with its rounded mean rating.
type MediaListItem struct {
	models.Media
	AvgRating float64 `json:"avgRating"`
}

type ratingTally struct {
	sum   int
	count int
}

// MeanRating returns the exact arithmetic mean, or nil for no ratings.
func MeanRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return &mean
}

// RoundRating rounds to one decimal place, half away from zero.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// tallyRatings folds reviews into a per-media accumulator. Every id in
// mediaIDs starts at zero so unrated media still get an entry; reviews for
// ids outside the set are ignored.
func tallyRatings(mediaIDs []string, reviews []models.Review) map[string]*ratingTally {
	tallies := make(map[string]*ratingTally, len(mediaIDs))
	for _, id := range mediaIDs {
		tallies[id] = &ratingTally{}
	}
	for _, r := range reviews {
		if t, ok := tallies[r.MediaID]; ok {
			t.sum += r.Rating
			t.count++
		}
	}
	return tallies
}

func (t *ratingTally) average() float64 {
	if t == nil || t.count == 0 {
		return 0
	}
	return RoundRating(float64(t.sum) / float64(t.count))
}

// RankMedia sorts by rating descending, then by title in collation order
// for the given language.
func RankMedia(items []MediaListItem, tag language.Tag) {
	col := collate.New(tag)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AvgRating != items[j].AvgRating {
			return items[i].AvgRating > items[j].AvgRating
		}
		return col.CompareString(items[i].Title, items[j].Title) < 0
	})
}

// TopN truncates an already ranked slice. Non-positive n keeps everything.
func TopN(items []MediaListItem, n int) []MediaListItem {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

// ParseLimit reads the ?limit= value the way browsers parse integers: the
// leading run of digits counts ("3abc" is 3, "2.5" is 2). Anything that is
// not a positive integer means no limit.
func ParseLimit(raw string) int {
	raw = strings.TrimLeft(raw, " \t\n\r")
	raw = strings.TrimPrefix(raw, "+")
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
