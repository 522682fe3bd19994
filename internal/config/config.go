package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig points at the relational backend holding class groups and
// lessons.
type DatabaseConfig struct {
	// Driver is "sqlite3" (local/dev) or "postgres" (hosted backend).
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn" json:"dsn"`
}

// CalendarConfig holds calendar rendering defaults.
type CalendarConfig struct {
	// DefaultView is used when a request does not name one:
	// "month" (default), "week" or "day".
	DefaultView string `yaml:"default_view" json:"default_view"`
}

// FeedConfig controls the iCalendar feed export.
type FeedConfig struct {
	ProductID string `yaml:"product_id" json:"product_id"`
	Name      string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone lesson dates and times are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron spec (e.g. "*/5 * * * *") for reloading the
	// lesson snapshot from the database.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Database DatabaseConfig `yaml:"database" json:"database"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Feed     FeedConfig     `yaml:"feed" json:"feed"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "America/Sao_Paulo"
	defaultLogLevel    = "info"
	defaultRefreshCron = "*/5 * * * *"
	defaultDriver      = "sqlite3"
	defaultDSN         = "./var/aulacal.db"
	defaultView        = "month"
	defaultProductID   = "-//aulacal//Lesson Calendar//PT"
	defaultFeedName    = "Aulas"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		LogLevel:    defaultLogLevel,
		RefreshCron: defaultRefreshCron,
		Database: DatabaseConfig{
			Driver: defaultDriver,
			DSN:    defaultDSN,
		},
		Calendar: CalendarConfig{DefaultView: defaultView},
		Feed: FeedConfig{
			ProductID: defaultProductID,
			Name:      defaultFeedName,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	case "sqlite":
		c.Database.Driver = "sqlite3"
	case "postgresql", "pg":
		c.Database.Driver = "postgres"
	default:
		c.Database.Driver = defaultDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == defaultDriver {
		c.Database.DSN = defaultDSN
	}

	switch c.Calendar.DefaultView {
	case "month", "week", "day":
	default:
		// Unknown value; month is what the scheduling screen opens on.
		c.Calendar.DefaultView = defaultView
	}

	if c.Feed.ProductID == "" {
		c.Feed.ProductID = defaultProductID
	}
	if c.Feed.Name == "" {
		c.Feed.Name = defaultFeedName
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".aulacal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
