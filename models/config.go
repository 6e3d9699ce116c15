// Package models defines data structures for configuration and menu extraction.
package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLocale       = "sv"
	DefaultSchedule     = "0 10 * * 1-5"
	DefaultFetchTimeout = 20 * time.Second
	DefaultAttemptLimit = 10 * time.Second

	EnvTelegramToken = "LUNCHBOT_TELEGRAM_TOKEN"
	EnvChatID        = "LUNCHBOT_CHAT_ID"
	EnvFile          = "LUNCHBOT_ENV_FILE"
)

// Config holds runtime configuration. It is loaded once at startup and passed
// explicitly to every action; nothing reads it from package state.
type Config struct {
	Locale       string        `yaml:"locale"`
	Timezone     string        `yaml:"timezone"`
	Schedule     string        `yaml:"schedule"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Database     string        `yaml:"database"`
	SnapshotDir  string        `yaml:"snapshot_dir"`
	ExtraNoise   []string      `yaml:"extra_noise"`

	Telegram    TelegramConfig `yaml:"telegram"`
	Restaurants []Restaurant   `yaml:"restaurants"`
}

// TelegramConfig carries the two opaque chat connection identifiers.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Restaurant describes one menu source and how to extract from it.
type Restaurant struct {
	Name     string            `yaml:"name"`
	Strategy string            `yaml:"strategy"` // header | card | feed
	Sources  []Attempt         `yaml:"sources"`
	Headers  map[string]string `yaml:"headers,omitempty"`

	// HeaderScan: tags allowed to carry a day marker. Empty means any tag.
	MarkerTags []string `yaml:"marker_tags,omitempty"`

	// CardLookup
	CardAttr     string `yaml:"card_attr,omitempty"`
	ListSelector string `yaml:"list_selector,omitempty"`
}

// Attempt is one transport attempt for fetching a source.
type Attempt struct {
	URL     string        `yaml:"url"`
	Proxy   string        `yaml:"proxy,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Source is what the fetcher needs: ordered attempts plus request headers.
type Source struct {
	Name     string
	Attempts []Attempt
	Headers  map[string]string
}

// Source returns the fetch description for the restaurant.
func (r Restaurant) Source() Source {
	return Source{Name: r.Name, Attempts: r.Sources, Headers: r.Headers}
}

// URLs lists every attempt URL, in order.
func (r Restaurant) URLs() []string {
	urls := make([]string, 0, len(r.Sources))
	for _, a := range r.Sources {
		urls = append(urls, a.URL)
	}
	return urls
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{
		Restaurants: []Restaurant{
			{
				Name:       "Södra Porten",
				Strategy:   "header",
				Sources:    []Attempt{{URL: "https://sodraporten.kvartersmenyn.se/"}},
				MarkerTags: []string{"h3"},
			},
			{
				Name:       "Nya Etage",
				Strategy:   "header",
				Sources:    []Attempt{{URL: "https://nyaetage.se/"}},
				MarkerTags: []string{"h4", "strong", "b"},
			},
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	for i := range c.Restaurants {
		r := &c.Restaurants[i]
		if r.Strategy == "" {
			r.Strategy = "header"
		}
		for j := range r.Sources {
			if r.Sources[j].Timeout <= 0 {
				r.Sources[j].Timeout = DefaultAttemptLimit
			}
		}
	}
}

// Validate reports configuration errors that would make a run meaningless.
func (c *Config) Validate() error {
	if len(c.Restaurants) == 0 {
		return errors.New("no restaurants configured")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	seen := make(map[string]bool, len(c.Restaurants))
	for _, r := range c.Restaurants {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("restaurant without name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate restaurant %q", r.Name)
		}
		seen[r.Name] = true
		if len(r.Sources) == 0 {
			return fmt.Errorf("restaurant %q has no sources", r.Name)
		}
		switch r.Strategy {
		case "header", "card", "feed":
		default:
			return fmt.Errorf("restaurant %q: unknown strategy %q", r.Name, r.Strategy)
		}
	}
	return nil
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig reads a YAML config file. A missing file yields DefaultConfig.
// Credentials from the environment (or a .env file) override the file values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads LUNCHBOT_ENV_FILE if set, otherwise .env when present.
// Variables already set in the environment are never overwritten.
func loadEnvFiles() error {
	if envFile := os.Getenv(EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv(EnvTelegramToken); token != "" {
		c.Telegram.Token = token
	}
	if raw := os.Getenv(EnvChatID); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvChatID, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}
