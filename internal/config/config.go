// Package config loads codesim settings from ~/.codesim/config.yaml,
// CODESIM_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override,
// e.g. CODESIM_SERVICE_URL.
const EnvPrefix = "CODESIM"

// Config is the application configuration.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Library LibraryConfig `mapstructure:"library"`
	Compare CompareConfig `mapstructure:"compare"`
	Log     LogConfig     `mapstructure:"log"`

	// DataDir holds the history database and event logs.
	DataDir string `mapstructure:"data_dir"`
}

// ServiceConfig describes the remote analysis service.
type ServiceConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Rate    float64       `mapstructure:"rate"` // requests per second
	Burst   int           `mapstructure:"burst"`
}

// LibraryConfig tunes file browsing.
type LibraryConfig struct {
	PageSize   int `mapstructure:"page_size"`
	CachePages int `mapstructure:"cache_pages"`
}

// CompareConfig tunes comparisons.
type CompareConfig struct {
	PageSize      int     `mapstructure:"page_size"` // against-all page size
	MaxPages      int     `mapstructure:"max_pages"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
	Language      string  `mapstructure:"language"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:     "http://localhost:8080",
			Timeout: 30 * time.Second,
			Rate:    10,
			Burst:   5,
		},
		Library: LibraryConfig{
			PageSize:   10,
			CachePages: 32,
		},
		Compare: CompareConfig{
			PageSize:      200,
			MaxPages:      500,
			MinSimilarity: 1,
		},
		Log:     LogConfig{Level: "info"},
		DataDir: Dir(),
	}
}

// Dir returns the codesim home directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codesim")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// New returns a viper instance carrying the defaults and environment
// bindings. Callers bind flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, c *Config) {
	for key, val := range c.settings() {
		v.SetDefault(key, val)
	}
}

// settings flattens c into viper keys.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"service.url":            c.Service.URL,
		"service.timeout":        c.Service.Timeout,
		"service.rate":           c.Service.Rate,
		"service.burst":          c.Service.Burst,
		"library.page_size":      c.Library.PageSize,
		"library.cache_pages":    c.Library.CachePages,
		"compare.page_size":      c.Compare.PageSize,
		"compare.max_pages":      c.Compare.MaxPages,
		"compare.min_similarity": c.Compare.MinSimilarity,
		"compare.language":       c.Compare.Language,
		"log.level":              c.Log.Level,
		"data_dir":               c.DataDir,
	}
}

// Load reads the config file into v and decodes the result. An empty
// path searches the default location, where a missing file is fine; an
// explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Service.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: service.url %q is not an http(s) URL", c.Service.URL)
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("config: service.timeout must be positive, got %s", c.Service.Timeout)
	}
	if c.Library.PageSize <= 0 {
		return fmt.Errorf("config: library.page_size must be positive, got %d", c.Library.PageSize)
	}
	if c.Compare.PageSize <= 0 || c.Compare.MaxPages <= 0 {
		return fmt.Errorf("config: compare.page_size and compare.max_pages must be positive")
	}
	if c.Compare.MinSimilarity < 1 || c.Compare.MinSimilarity > 100 {
		return fmt.Errorf("config: compare.min_similarity %v outside [1, 100]", c.Compare.MinSimilarity)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	return nil
}

// Save writes c as YAML to path, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	v := viper.New()
	for key, val := range c.settings() {
		v.Set(key, val)
	}
	v.Set("service.timeout", c.Service.Timeout.String())
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// HistoryPath is the history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EventLogPath is the JSONL event log for today.
func (c *Config) EventLogPath(now time.Time) string {
	return filepath.Join(c.DataDir, "logs", fmt.Sprintf("events-%s.jsonl", now.Format("2006-01-02")))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
