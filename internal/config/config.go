// Package config provides YAML-based configuration loading for Yukki, with
// environment overrides for deployments that carry no config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. YUKKI_BOT_TOKEN.
const EnvPrefix = "YUKKI"

// DefaultVideoStreamLimit is used when video_stream_limit is not configured.
const DefaultVideoStreamLimit = 3

// Config is the top-level Yukki configuration, loaded from yukki.yaml.
type Config struct {
	BotToken         string            `yaml:"bot_token"`
	OwnerIDs         []int64           `yaml:"owner_ids"`
	Assistants       []AssistantConfig `yaml:"assistants"`
	VideoStreamLimit *int              `yaml:"video_stream_limit"`
	DefaultLanguage  string            `yaml:"default_language"`
	Store            StoreConfig       `yaml:"store"`
	Cache            CacheConfig       `yaml:"cache"`
	Calls            CallsConfig       `yaml:"calls"`
	Log              LogConfig         `yaml:"log"`
	Dashboard        DashboardConfig   `yaml:"dashboard"`
	Backup           BackupConfig      `yaml:"backup"`
}

// AssistantConfig describes one assistant account. Its position in the
// list is its 1-based assistant index.
type AssistantConfig struct {
	Name    string `yaml:"name"`
	Session string `yaml:"session"`
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // "sqlite" or "mysql"
	Path   string      `yaml:"path"`   // sqlite file
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings for a MySQL-backed store.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// CacheConfig sizes the in-memory settings cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// CallsConfig configures the call gateway sidecar.
type CallsConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DashboardConfig controls the status HTTP server.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// BackupConfig schedules periodic store snapshots.
type BackupConfig struct {
	Cron string `yaml:"cron"`
	Dir  string `yaml:"dir"`
}

// envOverrides mirrors the subset of Config that may be set from the
// environment. Unset variables leave the YAML values untouched.
type envOverrides struct {
	BotToken         string   `envconfig:"BOT_TOKEN"`
	OwnerIDs         []int64  `envconfig:"OWNER_IDS"`
	StringSessions   []string `envconfig:"STRING_SESSIONS"`
	VideoStreamLimit *int     `envconfig:"VIDEO_STREAM_LIMIT"`
	DefaultLanguage  string   `envconfig:"DEFAULT_LANGUAGE"`
	StoreDriver      string   `envconfig:"STORE_DRIVER"`
	StorePath        string   `envconfig:"STORE_PATH"`
	LogLevel         string   `envconfig:"LOG_LEVEL"`
	CallsCommand     string   `envconfig:"CALLS_COMMAND"`
}

// Load reads a YAML config file from path, applies .env and environment
// overrides, and returns a validated Config. A missing file is tolerated
// when the bot token comes from the environment.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && os.Getenv(EnvPrefix+"_BOT_TOKEN") != "" {
			return Parse(nil)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies environment overrides, and returns a
// validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StreamLimit returns the configured default video stream limit.
func (c *Config) StreamLimit() int {
	if c.VideoStreamLimit == nil {
		return DefaultVideoStreamLimit
	}
	return *c.VideoStreamLimit
}

// IsOwner reports whether id is one of the static owner ids.
func (c *Config) IsOwner(id int64) bool {
	return slices.Contains(c.OwnerIDs, id)
}

// loadDotEnv applies an optional .env file. godotenv never overrides
// variables that are already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

// applyEnv overlays YUKKI_* environment variables onto the YAML values.
func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if env.BotToken != "" {
		c.BotToken = env.BotToken
	}
	if len(env.OwnerIDs) > 0 {
		c.OwnerIDs = env.OwnerIDs
	}
	if len(env.StringSessions) > 0 {
		c.Assistants = c.Assistants[:0]
		for i, s := range env.StringSessions {
			c.Assistants = append(c.Assistants, AssistantConfig{
				Name:    fmt.Sprintf("assistant-%d", i+1),
				Session: strings.TrimSpace(s),
			})
		}
	}
	if env.VideoStreamLimit != nil {
		c.VideoStreamLimit = env.VideoStreamLimit
	}
	if env.DefaultLanguage != "" {
		c.DefaultLanguage = env.DefaultLanguage
	}
	if env.StoreDriver != "" {
		c.Store.Driver = env.StoreDriver
	}
	if env.StorePath != "" {
		c.Store.Path = env.StorePath
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.CallsCommand != "" {
		c.Calls.Command = env.CallsCommand
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "yukki.db"
	}
	if c.Store.MySQL.Host == "" {
		c.Store.MySQL.Host = "127.0.0.1"
	}
	if c.Store.MySQL.Port == 0 {
		c.Store.MySQL.Port = 3306
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 10000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "backups"
	}
	for i := range c.Assistants {
		if c.Assistants[i].Name == "" {
			c.Assistants[i].Name = fmt.Sprintf("assistant-%d", i+1)
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.BotToken == "" {
		errs = append(errs, "bot_token is required")
	}
	if len(c.OwnerIDs) == 0 {
		errs = append(errs, "at least one owner id is required")
	}
	if len(c.Assistants) == 0 {
		errs = append(errs, "at least one assistant is required")
	}
	for i, a := range c.Assistants {
		if a.Session == "" {
			errs = append(errs, fmt.Sprintf("assistants[%d].session is required", i))
		}
	}
	if c.VideoStreamLimit != nil && *c.VideoStreamLimit < 0 {
		errs = append(errs, "video_stream_limit must not be negative")
	}
	switch c.Store.Driver {
	case "sqlite":
	case "mysql":
		if c.Store.MySQL.Database == "" {
			errs = append(errs, "store.mysql.database is required for the mysql driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (sqlite, mysql)", c.Store.Driver))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", c.Log.Level))
	}
	if c.Backup.Cron != "" {
		if _, err := CronParser.Parse(c.Backup.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("backup.cron %q is invalid: %v", c.Backup.Cron, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
