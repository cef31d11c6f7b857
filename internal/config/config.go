package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// UpstreamConfig describes the festival content API being proxied.
type UpstreamConfig struct {
	// URL returns the full programme as JSON.
	URL string `yaml:"url" json:"url"`
	// TimeoutSeconds bounds a single fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// FestivalConfig describes the festival's calendar.
type FestivalConfig struct {
	// Name is shown in exports and the day grid.
	Name string `yaml:"name" json:"name"`
	// FirstDay is the opening day, "2006-01-02".
	FirstDay string `yaml:"first_day" json:"first_day"`
	// Days is the number of festival days including FirstDay.
	Days int `yaml:"days" json:"days"`
}

// CaptureConfig controls day grid snapshots.
type CaptureConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the festival's IANA timezone. All "HH:MM" values are
	// wall-clock times in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a standard 5-field cron expression for refreshing the
	// schedule snapshot (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Upstream UpstreamConfig `yaml:"upstream" json:"upstream"`
	Festival FestivalConfig `yaml:"festival" json:"festival"`

	// DataDir holds the upstream response cache and captured previews.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Database is the SQLite file for favorites. Empty keeps favorites in
	// memory only.
	Database string `yaml:"database" json:"database"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Europe/Paris"
	defaultLogLevel    = "info"
	defaultRefreshCron = "*/15 * * * *"
	defaultTimeout     = 15
	defaultDataDir     = "/var/lib/festcal"
	defaultWidth       = 1280
	defaultHeight      = 1600
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		LogLevel:    defaultLogLevel,
		RefreshCron: defaultRefreshCron,
		Upstream: UpstreamConfig{
			TimeoutSeconds: defaultTimeout,
		},
		Festival: FestivalConfig{
			Days: 1,
		},
		DataDir:  defaultDataDir,
		Database: filepath.Join(defaultDataDir, "festcal.db"),
		Capture: CaptureConfig{
			Width:  defaultWidth,
			Height: defaultHeight,
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly. Database is left as-is: empty is meaningful.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		c.Upstream.TimeoutSeconds = defaultTimeout
	}
	if c.Festival.Days <= 0 {
		c.Festival.Days = 1
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultHeight
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", c.RefreshCron, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directories created) and returned.
//   - Otherwise the YAML is read, normalized and validated.
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
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".festcal-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
