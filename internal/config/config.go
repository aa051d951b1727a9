// Package config loads chatmirror settings from defaults, an optional YAML
// file, a .env file and CHATMIRROR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CHATMIRROR_"

const (
	DefaultCacheBudget        = 1000 * 1000 * 100
	DefaultRetryStep          = time.Second
	DefaultShownMessagesLimit = 32
	DefaultTypingTTL          = 5 * time.Second
	DefaultHistoryPageSize    = 50
	DefaultPollInterval       = 2 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "console"
)

// Config is the effective configuration.
type Config struct {
	DataDir            string    `yaml:"data_dir"`
	Homeserver         string    `yaml:"homeserver"`
	Token              string    `yaml:"token"`
	UserID             uint64    `yaml:"user_id"`
	CacheBudget        SizeBytes `yaml:"cache_budget"`
	RetryStep          Duration  `yaml:"retry_step"`
	ShownMessagesLimit int       `yaml:"shown_messages_limit"`
	TypingTTL          Duration  `yaml:"typing_ttl"`
	HistoryPageSize    int       `yaml:"history_page_size"`
	PollInterval       Duration  `yaml:"poll_interval"`
	LogLevel           string    `yaml:"log_level"`
	LogFormat          string    `yaml:"log_format"`
	MetricsAddr        string    `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:            defaultDataDir(),
		CacheBudget:        DefaultCacheBudget,
		RetryStep:          Duration(DefaultRetryStep),
		ShownMessagesLimit: DefaultShownMessagesLimit,
		TypingTTL:          Duration(DefaultTypingTTL),
		HistoryPageSize:    DefaultHistoryPageSize,
		PollInterval:       Duration(DefaultPollInterval),
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".chatmirror"
	}
	return filepath.Join(home, ".chatmirror")
}

// Load builds the effective configuration. An empty file means no YAML file;
// CHATMIRROR_CONFIG names one when file is empty. A missing .env is ignored.
func Load(file string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if file == "" {
		file = os.Getenv(envPrefix + "CONFIG")
	}
	if file != "" {
		if err := LoadFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays CHATMIRROR_* variables onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := get("HOMESERVER"); ok {
		cfg.Homeserver = v
	}
	if v, ok := get("TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := get("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("USER_ID"); ok {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sUSER_ID: %w", envPrefix, err)
		}
		cfg.UserID = id
	}
	if v, ok := get("CACHE_BUDGET"); ok {
		size, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_BUDGET: %w", envPrefix, err)
		}
		cfg.CacheBudget = size
	}
	for name, dst := range map[string]*Duration{
		"RETRY_STEP":    &cfg.RetryStep,
		"TYPING_TTL":    &cfg.TypingTTL,
		"POLL_INTERVAL": &cfg.PollInterval,
	} {
		v, ok := get(name)
		if !ok {
			continue
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	for name, dst := range map[string]*int{
		"SHOWN_MESSAGES_LIMIT": &cfg.ShownMessagesLimit,
		"HISTORY_PAGE_SIZE":    &cfg.HistoryPageSize,
	} {
		v, ok := get(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects values the client cannot run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is empty")
	}
	if c.CacheBudget <= 0 {
		return fmt.Errorf("cache_budget must be positive, got %d", c.CacheBudget)
	}
	if c.RetryStep <= 0 {
		return fmt.Errorf("retry_step must be positive, got %s", c.RetryStep.Duration())
	}
	if c.ShownMessagesLimit <= 0 {
		return fmt.Errorf("shown_messages_limit must be positive, got %d", c.ShownMessagesLimit)
	}
	if c.HistoryPageSize <= 0 {
		return fmt.Errorf("history_page_size must be positive, got %d", c.HistoryPageSize)
	}
	if c.TypingTTL < 0 || c.PollInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// JournalPath is where inbound events are recorded.
func (c Config) JournalPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}
