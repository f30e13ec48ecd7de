// Package config loads sitescope configuration from an optional YAML file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

type Config struct {
	Env        string           `koanf:"env"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Scan       ScanConfig       `koanf:"scan"`
	Tasks      TasksConfig      `koanf:"tasks"`
	Collectors CollectorsConfig `koanf:"collectors"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Log        LogConfig        `koanf:"log"`
}

type ServerConfig struct {
	ListenAddr string `koanf:"listen_addr"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

type ScanConfig struct {
	Workers          int           `koanf:"workers"`
	PollInterval     time.Duration `koanf:"poll_interval"`
	CollectorTimeout time.Duration `koanf:"collector_timeout"`
	CrawlTimeout     time.Duration `koanf:"crawl_timeout"`
	MinMarkupBytes   int           `koanf:"min_markup_bytes"`
	UserAgent        string        `koanf:"user_agent"`
	CacheSize        int           `koanf:"cache_size"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
}

type TasksConfig struct {
	BatchSize int `koanf:"batch_size"`
}

// CollectorsConfig enables the third-party signal providers. A provider with
// no key or endpoint is disabled and reported as Failed("disabled").
type CollectorsConfig struct {
	PageSpeedAPIKey    string `koanf:"pagespeed_api_key"`
	SafeBrowsingAPIKey string `koanf:"safe_browsing_api_key"`
	ValidatorURL       string `koanf:"validator_url"`
	SearchIndexURL     string `koanf:"search_index_url"`
	SearchIndexAPIKey  string `koanf:"search_index_api_key"`
	WaybackURL         string `koanf:"wayback_url"`

	// RatePerSecond bounds calls to each provider.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// ScoringConfig overrides rubric weights and point deltas by key.
type ScoringConfig struct {
	Weights map[string]float64 `koanf:"weights"`
	Deltas  map[string]int     `koanf:"deltas"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// envKeys maps the supported environment variables to config keys.
var envKeys = map[string]string{
	"APP_ENV":               "env",
	"LISTEN_ADDR":           "server.listen_addr",
	"DATABASE_URL":          "database.url",
	"DATABASE_MAX_CONNS":    "database.max_conns",
	"SCAN_WORKERS":          "scan.workers",
	"SCAN_POLL_INTERVAL":    "scan.poll_interval",
	"COLLECTOR_TIMEOUT":     "scan.collector_timeout",
	"CRAWL_TIMEOUT":         "scan.crawl_timeout",
	"MIN_MARKUP_BYTES":      "scan.min_markup_bytes",
	"CRAWL_USER_AGENT":      "scan.user_agent",
	"COLLECTOR_CACHE_SIZE":  "scan.cache_size",
	"COLLECTOR_CACHE_TTL":   "scan.cache_ttl",
	"TASK_BATCH_SIZE":       "tasks.batch_size",
	"PAGESPEED_API_KEY":     "collectors.pagespeed_api_key",
	"SAFE_BROWSING_API_KEY": "collectors.safe_browsing_api_key",
	"W3C_VALIDATOR_URL":     "collectors.validator_url",
	"SEARCH_INDEX_URL":      "collectors.search_index_url",
	"SEARCH_INDEX_API_KEY":  "collectors.search_index_api_key",
	"WAYBACK_URL":           "collectors.wayback_url",
	"COLLECTOR_RATE_LIMIT":  "collectors.rate_per_second",
	"LOG_LEVEL":             "log.level",
	"LOG_FORMAT":            "log.format",
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Env:      "development",
		Server:   ServerConfig{ListenAddr: ":8080"},
		Database: DatabaseConfig{MaxConns: 10},
		Scan: ScanConfig{
			Workers:          0,
			PollInterval:     500 * time.Millisecond,
			CollectorTimeout: 20 * time.Second,
			CrawlTimeout:     30 * time.Second,
			MinMarkupBytes:   2048,
			UserAgent:        "Mozilla/5.0 (compatible; sitescope/1.0; +https://sitescope.dev/bot)",
			CacheSize:        512,
			CacheTTL:         15 * time.Minute,
		},
		Tasks:      TasksConfig{BatchSize: 50},
		Collectors: CollectorsConfig{WaybackURL: "https://archive.org/wayback/available", RatePerSecond: 5},
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads CONFIG_FILE (if set) and then the environment on top of Default.
//
// Precedence, highest first: environment variables, YAML file, defaults.
func Load() (Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

func LoadWithFile(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return cfg, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// ErrMissingDatabaseURL is returned by Validate when DATABASE_URL is unset.
// Not fatal for early local runs; callers decide.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL not set")

// Validate ensures all configuration values are coherent.
func (c Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan workers cannot be negative")
	}
	if c.Scan.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Scan.CollectorTimeout <= 0 || c.Scan.CrawlTimeout <= 0 {
		return fmt.Errorf("collector and crawl timeouts must be positive")
	}
	if c.Scan.MinMarkupBytes < 0 {
		return fmt.Errorf("min markup bytes cannot be negative")
	}
	if c.Tasks.BatchSize <= 0 {
		return fmt.Errorf("task batch size must be positive")
	}
	for k, w := range c.Scoring.Weights {
		if w < 0 {
			return fmt.Errorf("scoring weight %s cannot be negative", k)
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be json or console")
	}
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}
