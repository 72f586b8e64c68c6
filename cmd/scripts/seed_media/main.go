// Command seed_media loads catalog rows from a YAML file. Titles already in
// the catalog are skipped.
//
//	go run ./cmd/scripts/seed_media -file cmd/scripts/seed_media/catalog.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type catalogFile struct {
	Media []models.Media `yaml:"media"`
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	file := flag.String("file", "catalog.yaml", "YAML file with a top-level media list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}

	items, err := parseCatalog(data)
	if err != nil {
		fmt.Printf("Invalid catalog: %v\n", err)
		os.Exit(1)
	}

	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(db); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		os.Exit(1)
	}

	inserted, skipped, err := seedCatalog(db, items)
	if err != nil {
		fmt.Printf("Seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Inserted %d media, skipped %d existing titles\n", inserted, skipped)
}

func parseCatalog(data []byte) ([]models.Media, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for i, m := range file.Media {
		if strings.TrimSpace(m.Title) == "" {
			return nil, fmt.Errorf("media[%d]: title is required", i)
		}
	}
	return file.Media, nil
}

func seedCatalog(db *gorm.DB, items []models.Media) (inserted, skipped int, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, m := range items {
			var count int64
			if err := tx.Model(&models.Media{}).Where("title = ?", m.Title).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				skipped++
				continue
			}
			m := m
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert %q: %w", m.Title, err)
			}
			inserted++
		}
		return nil
	})
	return inserted, skipped, err
}
