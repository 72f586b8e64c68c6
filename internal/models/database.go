package models

import (
	"fmt"

	"github.com/mediahub/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// unique violations surface as gorm.ErrDuplicatedKey on every driver
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer; also keeps ":memory:" databases on a single connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Profile{},
		&Media{},
		&Review{},
		&RefreshToken{},
		&SystemConfig{},
		&SystemLog{},
	)
}

// SeedDefaultData creates default settings and, on an empty catalog, a
// starter set of media rows.
func SeedDefaultData(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: "auth_access_token_expire_hours", Value: "24", Type: "int", Group: "auth", Label: "Access Token Lifetime (hours)"},
		{Key: "auth_refresh_token_expire_hours", Value: "720", Type: "int", Group: "auth", Label: "Refresh Token Lifetime (hours)"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where("config_key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	var mediaCount int64
	if err := db.Model(&Media{}).Count(&mediaCount).Error; err != nil {
		return err
	}
	if mediaCount > 0 {
		return nil
	}

	catalog := DefaultCatalog()
	return db.Create(&catalog).Error
}

// DefaultCatalog is the starter catalog seeded into an empty database.
func DefaultCatalog() []Media {
	str := func(s string) *string { return &s }
	return []Media{
		{
			Title:       "The Beatles",
			Description: "Liverpool quartet that reshaped popular music in the 1960s.",
			Year:        1960,
			Genre:       "Rock",
			Members:     str("John Lennon, Paul McCartney, George Harrison, Ringo Starr"),
		},
		{
			Title:       "Queen",
			Description: "British rock band known for theatrical stadium performances.",
			Year:        1970,
			Genre:       "Rock",
			Members:     str("Freddie Mercury, Brian May, Roger Taylor, John Deacon"),
		},
		{
			Title:       "Radiohead",
			Description: "Oxfordshire band moving between alternative rock and electronica.",
			Year:        1985,
			Genre:       "Alternative",
			Members:     str("Thom Yorke, Jonny Greenwood, Colin Greenwood, Ed O'Brien, Philip Selway"),
		},
		{
			Title:       "Pink Floyd",
			Description: "Progressive rock pioneers of the concept album.",
			Year:        1965,
			Genre:       "Progressive Rock",
			Members:     str("Roger Waters, David Gilmour, Richard Wright, Nick Mason"),
		},
		{
			Title:       "Daft Punk",
			Description: "French electronic duo behind Discovery and Random Access Memories.",
			Year:        1993,
			Genre:       "Electronic",
			Members:     str("Thomas Bangalter, Guy-Manuel de Homem-Christo"),
		},
	}
}
