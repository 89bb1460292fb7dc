package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `app:
  name: "Courtside"
  environment: "development"
  port: 8080
database:
  driver: "sqlite"
  filename: "data/courtside.db"
match:
  creator_leave_policy: "transfer"
scheduler:
  no_show_cron: "*/10 * * * *"
`

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Match.Teams != 2 {
		t.Fatalf("teams: got %d want 2", cfg.Match.Teams)
	}
	if cfg.Match.CreatorLeavePolicy != CreatorLeaveTransfer {
		t.Fatalf("leave policy: got %q", cfg.Match.CreatorLeavePolicy)
	}
	if !cfg.Booking.RequireConfirmation {
		t.Fatal("expected confirmation to be required by default")
	}
	if cfg.EarlyCheckIn() != 15*time.Minute {
		t.Fatalf("early check-in: got %v", cfg.EarlyCheckIn())
	}
	if cfg.Rating.MinScore != 1 || cfg.Rating.MaxScore != 5 {
		t.Fatalf("rating scale: got %d-%d", cfg.Rating.MinScore, cfg.Rating.MaxScore)
	}
	if cfg.Scheduler.NoShowCron != "*/10 * * * *" {
		t.Fatalf("cron: got %q", cfg.Scheduler.NoShowCron)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app name is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Scheduler.NoShowCron = "every five minutes" },
			wantErr: "invalid scheduler no_show_cron",
		},
		{
			name:    "bad leave policy",
			mutate:  func(c *Config) { c.Match.CreatorLeavePolicy = "auto_cancel" },
			wantErr: "creator_leave_policy",
		},
		{
			name:    "inverted rating scale",
			mutate:  func(c *Config) { c.Rating.MinScore, c.Rating.MaxScore = 5, 1 },
			wantErr: "rating scale",
		},
		{
			name:    "single team",
			mutate:  func(c *Config) { c.Match.Teams = 1 },
			wantErr: "teams must be at least 2",
		},
		{
			name: "events without url",
			mutate: func(c *Config) {
				c.Features.EnableEvents = true
				c.Events.NATSURL = ""
			},
			wantErr: "nats_url",
		},
		{
			name:    "zero team imbalance tolerance",
			mutate:  func(c *Config) { c.Match.TeamImbalanceTolerance = 0 },
			wantErr: "team_imbalance_tolerance",
		},
		{
			name:    "turso driver",
			mutate:  func(c *Config) { c.Database.Driver = "turso" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "production without secret",
			mutate:  func(c *Config) { c.App.Environment = "production" },
			wantErr: "APP_SECRET_KEY",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validConfig))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error: got %q want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadGeneratesDevelopmentSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_SECRET_KEY", "")

	first, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	second, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(first.App.SecretKey) != 64 {
		t.Fatalf("expected a 32-byte hex key, got %q", first.App.SecretKey)
	}
	if first.App.SecretKey == second.App.SecretKey {
		t.Fatal("each process should get its own development key")
	}

	t.Setenv("APP_SECRET_KEY", "configured")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.App.SecretKey != "configured" {
		t.Fatalf("secret: got %q", cfg.App.SecretKey)
	}
}
