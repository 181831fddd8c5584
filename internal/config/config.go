// Package config loads the runtime configuration shared by the CLI
// commands and the HTTP server.
package config

import (
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// Config holds all quranchat configuration.
type Config struct {
	Corpus CorpusConfig `yaml:"corpus"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Chat   ChatConfig   `yaml:"chat"`
}

// CorpusConfig selects where chapter data is read from. URL wins over Dir
// when both are set.
type CorpusConfig struct {
	Dir string `yaml:"dir"`
	URL string `yaml:"url"`

	// RequireManifest fails startup when allSurahsMeta.json is missing
	// instead of using the built-in chapter table.
	RequireManifest bool `yaml:"require_manifest"`

	// CacheTTL refetches a chapter once its cached copy is older. Zero
	// keeps chapters until the process exits.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StoreConfig locates the session database. ":memory:" keeps sessions for
// the lifetime of the process only.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // empty = allow all

	RateLimitRequests int `yaml:"rate_limit_requests"` // per minute per IP, 0 = disabled
	RateLimitBurst    int `yaml:"rate_limit_burst"`

	// APIKey enables X-API-Key authentication when set.
	APIKey string `yaml:"api_key"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChatConfig tunes the chat engine.
type ChatConfig struct {
	MaxSearchResults int `yaml:"max_search_results"`
	RecentCapacity   int `yaml:"recent_capacity"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{Dir: "data"},
		Store:  StoreConfig{Path: "quranchat.db"},
		Server: ServerConfig{
			Port:              8080,
			RateLimitRequests: 120,
			RateLimitBurst:    20,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Chat: ChatConfig{
			MaxSearchResults: 7,
			RecentCapacity:   7,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewIO("read config", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.MalformedDataError{Resource: path, Message: "invalid YAML", Err: err}
	}
	return cfg, nil
}

// Validate checks the configuration for values the components would reject
// later with a less useful error.
func (c *Config) Validate() error {
	if c.Corpus.Dir == "" && c.Corpus.URL == "" {
		return errors.NewValidation("corpus", "one of dir or url is required")
	}
	if c.Corpus.URL != "" {
		u, err := url.Parse(c.Corpus.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.NewValidation("corpus.url", "must be an absolute http(s) URL")
		}
	}
	if c.Corpus.CacheTTL < 0 {
		return errors.NewValidation("corpus.cache_ttl", "must not be negative")
	}
	if c.Store.Path == "" {
		return errors.NewValidation("store.path", "must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.NewValidation("server.port", "must be between 1 and 65535")
	}
	if c.Server.RateLimitRequests < 0 || c.Server.RateLimitBurst < 0 {
		return errors.NewValidation("server.rate_limit", "must not be negative")
	}
	if c.Server.APIKey != "" && len(c.Server.APIKey) < 16 {
		return errors.NewValidation("server.api_key", "must be at least 16 characters")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.NewValidation("log.format", err.Error())
	}
	if c.Chat.MaxSearchResults < 1 {
		return errors.NewValidation("chat.max_search_results", "must be positive")
	}
	if c.Chat.RecentCapacity < 1 {
		return errors.NewValidation("chat.recent_capacity", "must be positive")
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write config", path, err)
	}
	return nil
}
