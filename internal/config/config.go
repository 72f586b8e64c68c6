package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Missing-profile policies for review submission.
const (
	MissingProfileReject    = "reject"
	MissingProfileProvision = "provision"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Reviews   ReviewsConfig   `yaml:"reviews"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
	Seed   bool   `yaml:"seed"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	// RequireSessionForWrites rejects review writes that carry no bearer token.
	RequireSessionForWrites bool `yaml:"require_session_for_writes"`
	MinPasswordLength       int  `yaml:"min_password_length"`
}

type ReviewsConfig struct {
	// MissingProfile decides what happens when a review author has an
	// identity but no profile row: "reject" or "provision".
	MissingProfile string `yaml:"missing_profile"`
}

type CatalogConfig struct {
	// Collation is a BCP 47 tag ("und", "en", "sv") used to order
	// equal-rated titles in the catalog list.
	Collation string `yaml:"collation"`
}

// CollationTag parses Collation; an empty value means the root collation.
func (c CatalogConfig) CollationTag() (language.Tag, error) {
	if c.Collation == "" {
		return language.Und, nil
	}
	return language.Parse(c.Collation)
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "mediahub.db",
			Seed:   true,
		},
		JWT: JWTConfig{
			Secret:     "mediahub-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			RequireSessionForWrites: false,
			MinPasswordLength:       6,
		},
		Reviews: ReviewsConfig{
			MissingProfile: MissingProfileReject,
		},
		Catalog: CatalogConfig{
			Collation: "und",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Reviews.MissingProfile {
	case MissingProfileReject, MissingProfileProvision:
	default:
		return fmt.Errorf("invalid reviews.missing_profile %q: want %q or %q",
			c.Reviews.MissingProfile, MissingProfileReject, MissingProfileProvision)
	}
	if _, err := c.Catalog.CollationTag(); err != nil {
		return fmt.Errorf("invalid catalog.collation %q: %w", c.Catalog.Collation, err)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must not be empty")
	}
	if c.JWT.ExpireHour <= 0 {
		return fmt.Errorf("jwt.expire_hour must be positive")
	}
	if c.Auth.MinPasswordLength <= 0 {
		c.Auth.MinPasswordLength = 6
	}
	return nil
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if policy := os.Getenv("REVIEWS_MISSING_PROFILE"); policy != "" {
		c.Reviews.MissingProfile = policy
	}
	if collation := os.Getenv("CATALOG_COLLATION"); collation != "" {
		c.Catalog.Collation = collation
	}
	if v := os.Getenv("AUTH_REQUIRE_SESSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.RequireSessionForWrites = b
		}
	}
}
