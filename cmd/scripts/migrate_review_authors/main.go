// Command migrate_review_authors backfills profiles from the author columns
// older review rows carried (username, user_email), then drops those columns.
//
//	go run ./cmd/scripts/migrate_review_authors            # dry run
//	go run ./cmd/scripts/migrate_review_authors --apply    # write profiles, drop columns
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var legacyColumns = []string{"username", "user_email"}

type legacyAuthor struct {
	UserID    string
	Username  string
	UserEmail string
}

type migrationReport struct {
	Authors        int
	Created        int
	Fallbacks      int
	DroppedColumns []string
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	apply := flag.Bool("apply", false, "write changes; without it the script only reports")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	report, err := migrateAuthors(db, *apply)
	if err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Legacy authors without a profile: %d\n", report.Authors)
	if !*apply {
		fmt.Println("Dry run, nothing written. Re-run with --apply.")
		return
	}
	fmt.Printf("Profiles created: %d (%d with a generated username)\n", report.Created, report.Fallbacks)
	if len(report.DroppedColumns) > 0 {
		fmt.Printf("Dropped columns: %s\n", strings.Join(report.DroppedColumns, ", "))
	}
}

// migrateAuthors creates a profile for every review author that has none,
// using the denormalized fields of their most recent review. With apply
// unset it only counts.
func migrateAuthors(db *gorm.DB, apply bool) (*migrationReport, error) {
	report := &migrationReport{}
	migrator := db.Migrator()

	var present []string
	for _, col := range legacyColumns {
		if migrator.HasColumn(&models.Review{}, col) {
			present = append(present, col)
		}
	}
	if len(present) != len(legacyColumns) {
		if len(present) == 0 {
			return report, nil
		}
		return nil, fmt.Errorf("reviews table has only %v of the legacy columns %v", present, legacyColumns)
	}

	var authors []legacyAuthor
	if err := db.Table("reviews").
		Select("reviews.user_id, reviews.username, reviews.user_email").
		Joins("LEFT JOIN profiles ON profiles.id = reviews.user_id").
		Where("profiles.id IS NULL").
		Order("reviews.created_at DESC").
		Scan(&authors).Error; err != nil {
		return nil, fmt.Errorf("read legacy authors: %w", err)
	}
	authors = latestPerUser(authors)
	report.Authors = len(authors)

	if !apply {
		return report, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		profiles := services.NewProfileService(tx)
		for _, a := range authors {
			username, fallback, err := pickUsername(tx, profiles, a)
			if err != nil {
				return err
			}

			p := models.Profile{
				ID:        a.UserID,
				Username:  username,
				Email:     strings.TrimSpace(a.UserEmail),
				CreatedAt: time.Now().UTC(),
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&p)
			if result.Error != nil {
				return fmt.Errorf("create profile for %s: %w", a.UserID, result.Error)
			}
			if result.RowsAffected > 0 {
				report.Created++
				if fallback {
					report.Fallbacks++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, col := range legacyColumns {
		if err := migrator.DropColumn(&models.Review{}, col); err != nil {
			return nil, fmt.Errorf("drop column %s: %w", col, err)
		}
		report.DroppedColumns = append(report.DroppedColumns, col)
	}
	return report, nil
}

// latestPerUser keeps the first row per user; rows arrive newest first.
func latestPerUser(rows []legacyAuthor) []legacyAuthor {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if r.UserID == "" || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		out = append(out, r)
	}
	return out
}

func pickUsername(tx *gorm.DB, profiles *services.ProfileService, a legacyAuthor) (string, bool, error) {
	candidate, err := services.ValidateUsername(a.Username)
	if err != nil {
		candidate = services.UsernameFromEmail(a.UserEmail, a.UserID)
	}

	taken, err := profiles.UsernameTaken(tx, candidate)
	if err != nil {
		return "", false, err
	}
	if !taken {
		return candidate, candidate != strings.TrimSpace(a.Username), nil
	}

	fallback := services.FallbackUsername(a.UserID)
	if taken, err := profiles.UsernameTaken(tx, fallback); err != nil {
		return "", false, err
	} else if taken {
		return "", false, errors.New("no free username for " + a.UserID)
	}
	return fallback, true, nil
}
