// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	CreatorLeaveReject   = "reject"
	CreatorLeaveTransfer = "transfer"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BookingConfig struct {
	// When false, new bookings start confirmed.
	RequireConfirmation bool `yaml:"require_confirmation"`
	EarlyCheckInMinutes int  `yaml:"early_check_in_minutes"`
	InsertRetryAttempts int  `yaml:"insert_retry_attempts"`
}

type MatchConfig struct {
	Teams                  int    `yaml:"teams"`
	TeamImbalanceTolerance int    `yaml:"team_imbalance_tolerance"`
	CreatorLeavePolicy     string `yaml:"creator_leave_policy"`
}

type RatingConfig struct {
	MinScore int `yaml:"min_score"`
	MaxScore int `yaml:"max_score"`
}

type SchedulerConfig struct {
	NoShowCron string `yaml:"no_show_cron"`
}

type EventsConfig struct {
	NATSURL   string `yaml:"nats_url"`
	ClusterID string `yaml:"cluster_id"`
	ClientID  string `yaml:"client_id"`
}

type Config struct {
	App struct {
		Name        string        `yaml:"name"`
		Environment string        `yaml:"environment"`
		Port        int           `yaml:"port"`
		BaseURL     string        `yaml:"base_url"`
		TokenTTL    time.Duration `yaml:"token_ttl"`
		SecretKey   string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Match     MatchConfig     `yaml:"match"`
	Rating    RatingConfig    `yaml:"rating"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableEvents  bool `yaml:"enable_events"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Tokens are never signed with an empty key. Development gets a random
	// per-process key, so issued tokens stop working on restart.
	if cfg.App.SecretKey == "" {
		key, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("error generating secret key: %w", err)
		}
		cfg.App.SecretKey = key
		log.Warn().Msg("APP_SECRET_KEY not set; using a random development key")
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when a field is left unset.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Environment = "development"
	cfg.App.TokenTTL = 8 * time.Hour
	cfg.Database.Driver = "sqlite"
	cfg.Booking.RequireConfirmation = true
	cfg.Booking.EarlyCheckInMinutes = 15
	cfg.Booking.InsertRetryAttempts = 3
	cfg.Match.Teams = 2
	cfg.Match.TeamImbalanceTolerance = 1
	cfg.Match.CreatorLeavePolicy = CreatorLeaveReject
	cfg.Rating.MinScore = 1
	cfg.Rating.MaxScore = 5
	cfg.Scheduler.NoShowCron = "*/5 * * * *"
	cfg.Events.ClusterID = "courtside"
	cfg.Events.ClientID = "courtside-engine"
	return cfg
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.App.TokenTTL <= 0 {
		c.App.TokenTTL = defaults.App.TokenTTL
	}
	if c.Booking.InsertRetryAttempts <= 0 {
		c.Booking.InsertRetryAttempts = defaults.Booking.InsertRetryAttempts
	}
	if c.Match.Teams <= 0 {
		c.Match.Teams = defaults.Match.Teams
	}
	if strings.TrimSpace(c.Match.CreatorLeavePolicy) == "" {
		c.Match.CreatorLeavePolicy = defaults.Match.CreatorLeavePolicy
	}
	if strings.TrimSpace(c.Scheduler.NoShowCron) == "" {
		c.Scheduler.NoShowCron = defaults.Scheduler.NoShowCron
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.EarlyCheckInMinutes < 0 {
		return fmt.Errorf("booking early_check_in_minutes must be 0 or greater")
	}
	if c.Match.Teams < 2 {
		return fmt.Errorf("match teams must be at least 2")
	}
	if c.Match.TeamImbalanceTolerance < 1 {
		return fmt.Errorf("match team_imbalance_tolerance must be at least 1")
	}
	switch c.Match.CreatorLeavePolicy {
	case CreatorLeaveReject, CreatorLeaveTransfer:
	default:
		return fmt.Errorf("unsupported match creator_leave_policy: %s", c.Match.CreatorLeavePolicy)
	}
	if c.Rating.MinScore < 1 || c.Rating.MaxScore < c.Rating.MinScore {
		return fmt.Errorf("rating scale must satisfy 1 <= min_score <= max_score")
	}
	if _, err := cron.ParseStandard(c.Scheduler.NoShowCron); err != nil {
		return fmt.Errorf("invalid scheduler no_show_cron %q: %w", c.Scheduler.NoShowCron, err)
	}
	if c.Features.EnableEvents && c.Events.NATSURL == "" {
		return fmt.Errorf("events nats_url is required when events are enabled")
	}
	if c.App.Environment != "development" && c.App.SecretKey == "" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}

	return nil
}

// EarlyCheckIn is how long before start a booking owner may check in.
func (c *Config) EarlyCheckIn() time.Duration {
	return time.Duration(c.Booking.EarlyCheckInMinutes) * time.Minute
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
