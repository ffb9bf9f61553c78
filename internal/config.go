package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// LocalTimezone selects the host time zone for month boundaries.
const LocalTimezone = "Local"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Index    IndexConfig       `yaml:"index"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration and fills path defaults that depend
// on other sections.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Calendar.Validate(); err != nil {
		return err
	}
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(c.Data.Dir, "catalog.db")
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the application data directory. The documents folder
// setting (config.json) lives inside it.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// CalendarConfig controls how month views are computed.
type CalendarConfig struct {
	Timezone string `yaml:"timezone"`
	Name     string `yaml:"name"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	if c.Timezone == "" {
		c.Timezone = LocalTimezone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves Timezone.
func (c *CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == LocalTimezone {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// IndexConfig holds the SQLite catalog configuration.
//
// Resync is a cron spec for a periodic full catalog sync; an empty value
// disables it.
type IndexConfig struct {
	Path   string `yaml:"path"`
	Resync string `yaml:"resync"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Resync, validation.By(func(any) error {
			if c.Resync == "" {
				return nil
			}
			if _, err := cron.ParseStandard(c.Resync); err != nil {
				return errors.New("must be a cron expression or @every duration")
			}
			return nil
		})),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DefaultDataDir returns <user config dir>/mdcal, or ./mdcal-data when the
// user config dir cannot be determined.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "./mdcal-data"
	}
	return filepath.Join(base, "mdcal")
}

// NewDefaultConfig returns a new Config with sensible default values.
// Index.Path is derived from Data.Dir during validation.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir: DefaultDataDir(),
		},
		Calendar: CalendarConfig{
			Timezone: LocalTimezone,
			Name:     "mdcal",
		},
		Index: IndexConfig{
			Resync: "@every 10m",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
