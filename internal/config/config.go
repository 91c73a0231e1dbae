package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config is the single YAML config file for torfbot.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// The Telegram token is NOT part of the file; it comes from the
// TELEGRAM_TOKEN environment variable.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
	Data     DataConfig     `yaml:"data"`
	Sources  SourcesConfig  `yaml:"sources"`
	Wiki     WikiConfig     `yaml:"wiki"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type TelegramConfig struct {
	// AdminUserIDs always receive alerts, in addition to subscribers.
	AdminUserIDs []int64 `yaml:"admin_user_ids"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type DataConfig struct {
	Polygons       string `yaml:"polygons"`
	AlertsSnapshot string `yaml:"alerts_snapshot"`
	Users          string `yaml:"users"`
	UserRegions    string `yaml:"user_regions"`
	ArchiveDir     string `yaml:"archive_dir"`
	// RetentionDays bounds how long alert snapshots are kept by `clean`.
	RetentionDays int `yaml:"retention_days"`
}

// SourcesConfig controls hotspot acquisition and tolerance matching.
//
// ToleranceM maps a sensor source name to its positional uncertainty in
// meters. Sources missing from the table fall back to DefaultToleranceM;
// they are matched with the conservative default, never dropped.
type SourcesConfig struct {
	ToleranceM        map[string]float64 `yaml:"tolerance_m"`
	DefaultToleranceM float64            `yaml:"default_tolerance_m"`
	Feeds             map[string]string  `yaml:"feeds"`
	FetchTimeout      string             `yaml:"fetch_timeout"`
}

type WikiConfig struct {
	SearchURL  string `yaml:"search_url"`
	BaseURL    string `yaml:"base_url"`
	DefaultURL string `yaml:"default_url"`
	CachePath  string `yaml:"cache_path"`
	Timeout    string `yaml:"timeout"`
}

// LedgerConfig controls the delivery ledger backend.
//
// Driver values:
//   - "file": jsonl journal + snapshot
//   - "sqlite": SQLite database file
type LedgerConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"` // sqlite only
}

type DispatchConfig struct {
	Workers     int    `yaml:"workers"`
	RatePerSec  int    `yaml:"rate_per_sec"`
	RetryMax    int    `yaml:"retry_max"`
	SendTimeout string `yaml:"send_timeout"`
}

type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// Load reads, strictly decodes and normalizes the config file.
// Unknown keys are rejected so typos surface early.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

func Parse(path string, b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Defaults mirror the historical deployment so a minimal config still runs.
const (
	defaultToleranceM   = 500
	defaultRetentionAge = 10
)

func defaultTolerances() map[string]float64 {
	return map[string]float64{
		"modis":        1000,
		"viirs_suomi":  300,
		"viirs_noaa20": 375,
		"viirs_noaa21": 375,
	}
}

func defaultFeeds() map[string]string {
	const base = "https://firms.modaps.eosdis.nasa.gov/data/active_fire"
	return map[string]string{
		"modis":        base + "/modis-c6.1/csv/MODIS_C6_1_Russia_Asia_24h.csv",
		"viirs_suomi":  base + "/suomi-npp-viirs-c2/csv/SUOMI_VIIRS_C2_Russia_Asia_24h.csv",
		"viirs_noaa20": base + "/noaa-20-viirs-c2/csv/J1_VIIRS_C2_Russia_Asia_24h.csv",
		"viirs_noaa21": base + "/noaa-21-viirs-c2/csv/J2_VIIRS_C2_Russia_Asia_24h.csv",
	}
}

func (c *Config) normalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Data.Polygons == "" {
		c.Data.Polygons = "data/Final_CFO(9region).geojson"
	}
	if c.Data.AlertsSnapshot == "" {
		c.Data.AlertsSnapshot = "data/last_alerts.json"
	}
	if c.Data.Users == "" {
		c.Data.Users = "data/users.json"
	}
	if c.Data.UserRegions == "" {
		c.Data.UserRegions = "data/user_regions.json"
	}
	if c.Data.RetentionDays <= 0 {
		c.Data.RetentionDays = defaultRetentionAge
	}
	if c.Sources.DefaultToleranceM <= 0 {
		c.Sources.DefaultToleranceM = defaultToleranceM
	}
	if len(c.Sources.ToleranceM) == 0 {
		c.Sources.ToleranceM = defaultTolerances()
	}
	if len(c.Sources.Feeds) == 0 {
		c.Sources.Feeds = defaultFeeds()
	}
	for name, r := range c.Sources.ToleranceM {
		if r <= 0 {
			return fmt.Errorf("sources.tolerance_m.%s: radius must be > 0", name)
		}
	}
	if _, err := ParseDurationOrDefault("sources.fetch_timeout", c.Sources.FetchTimeout, 0); err != nil {
		return err
	}
	if c.Wiki.DefaultURL == "" {
		c.Wiki.DefaultURL = "https://wiki.simargl-team.ru"
	}
	if c.Wiki.SearchURL == "" {
		c.Wiki.SearchURL = "https://wiki.simargl-team.ru/public/index.php?search="
	}
	if c.Wiki.BaseURL == "" {
		c.Wiki.BaseURL = "https://wiki.simargl-team.ru"
	}
	if c.Wiki.CachePath == "" {
		c.Wiki.CachePath = "data/wiki_cache.json"
	}
	if _, err := ParseDurationOrDefault("wiki.timeout", c.Wiki.Timeout, 0); err != nil {
		return err
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "file"
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/sent_log"
	}
	if _, err := ParseDurationOrDefault("ledger.busy_timeout", c.Ledger.BusyTimeout, 0); err != nil {
		return err
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 2
	}
	if c.Dispatch.RatePerSec <= 0 {
		c.Dispatch.RatePerSec = 20
	}
	if c.Dispatch.RetryMax < 0 {
		c.Dispatch.RetryMax = 0
	}
	if _, err := ParseDurationOrDefault("dispatch.send_timeout", c.Dispatch.SendTimeout, 0); err != nil {
		return err
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 6 * * *"
	}
	return nil
}

// FetchTimeout returns the parsed acquisition timeout.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("sources.fetch_timeout", c.Sources.FetchTimeout, 30*time.Second)
	return d
}

func (c *Config) WikiTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("wiki.timeout", c.Wiki.Timeout, 5*time.Second)
	return d
}

func (c *Config) SendTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("dispatch.send_timeout", c.Dispatch.SendTimeout, 10*time.Second)
	return d
}

func (c *Config) LedgerBusyTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("ledger.busy_timeout", c.Ledger.BusyTimeout, 5*time.Second)
	return d
}

// Token resolves the Telegram bot token from the environment.
func Token() (string, error) {
	t := os.Getenv("TELEGRAM_TOKEN")
	if t == "" {
		return "", errors.New("TELEGRAM_TOKEN is not set")
	}
	return t, nil
}
