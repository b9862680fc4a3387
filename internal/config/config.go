// Package config holds the service settings that are not owned by the
// database or logger packages.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=0.0.0.0:8431"`

	// OrderTimezone defines "today" for listing and archival.
	OrderTimezone string `env:"ORDER_TIMEZONE,default=+02:00"`

	ArchiveSchedule  string        `env:"ARCHIVE_SCHEDULE,default=5 0 * * *"`
	ArchiveOnStartup bool          `env:"ARCHIVE_ON_STARTUP,default=true"`
	ArchiveTimeout   time.Duration `env:"ARCHIVE_TIMEOUT,default=2m"`

	BcryptCost int `env:"BCRYPT_COST,default=10"`

	TokenSecret        string        `env:"TOKEN_SECRET"`
	TokenTTL           time.Duration `env:"TOKEN_TTL,default=12h"`
	AdminTokenRequired bool          `env:"ADMIN_TOKEN_REQUIRED,default=false"`

	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE,default=20"`
}

// FromEnv decodes Config from the process environment.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	if _, err := calendar.ParseZone(c.OrderTimezone); err != nil {
		return fmt.Errorf("ORDER_TIMEZONE: %w", err)
	}
	if c.AdminTokenRequired && c.TokenSecret == "" {
		return errors.New("ADMIN_TOKEN_REQUIRED needs TOKEN_SECRET")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST out of range: %d", c.BcryptCost)
	}
	if c.LoginRatePerMinute < 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MINUTE must not be negative")
	}
	return nil
}

// Zone returns the parsed order timezone. Call after Validate.
func (c *Config) Zone() calendar.Zone {
	return calendar.MustParseZone(c.OrderTimezone)
}
