package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"event-radar/ingester/internal/model"
)

// ConfigError aborts the run before any fetch happens. Everything else
// in the pipeline degrades; bad configuration does not.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %s", e.Field, e.Msg) }

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type StoreConfig struct {
	DSN      string `yaml:"dsn"` // overridable via STORE_DSN
	Schema   string `yaml:"schema"`
	MaxConns int    `yaml:"max_conns"`
}

// RenderAPIConfig describes one remote browser rendering provider.
// A provider with an empty API key is skipped when the fallback chain
// is built, never treated as an error.
type RenderAPIConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"` // overridable via RENDER_API_KEY_<NAME>
	Timeout time.Duration `yaml:"timeout"`
}

type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`        // per attempt
	ChainTimeout  time.Duration `yaml:"chain_timeout"`  // whole fallback chain
	UserAgent     string        `yaml:"user_agent"`
	RatePerSecond float64       `yaml:"rate_per_second"` // per source
	Burst         int           `yaml:"burst"`
	MaxWorkers    int           `yaml:"max_workers"` // global (source, locality) concurrency cap
	RunDeadline   time.Duration `yaml:"run_deadline"`
}

type SourceConfig struct {
	Type       string   `yaml:"type"` // eventbrite|meetup|luma|dice_fm|ra_co|posh_vip
	Localities []string `yaml:"localities"`
	BaseURL    string   `yaml:"base_url"` // optional override, mainly for tests
}

type DedupConfig struct {
	TitleThreshold    float64  `yaml:"title_threshold"`    // default 0.85
	LocationThreshold float64  `yaml:"location_threshold"` // default 0.70
	SourcePriority    []string `yaml:"source_priority"`
}

type SyncConfig struct {
	// Mode: 0 never; 1 every run; 2..4 every Nth run; >=5 always.
	Mode        int           `yaml:"mode"`
	BatchSize   int           `yaml:"batch_size"`
	Retention   time.Duration `yaml:"retention"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	HistoryPath string        `yaml:"history_path"`
	BufferPath  string        `yaml:"buffer_path"`
	LockPath    string        `yaml:"lock_path"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"` // empty disables the endpoint
}

type Config struct {
	Log     LogConfig         `yaml:"log"`
	Store   StoreConfig       `yaml:"store"`
	Render  []RenderAPIConfig `yaml:"render_apis"`
	Fetch   FetchConfig       `yaml:"fetch"`
	Sources []SourceConfig    `yaml:"sources"`
	Dedup   DedupConfig       `yaml:"dedup"`
	Sync    SyncConfig        `yaml:"sync"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// Load reads YAML from path, applies env overrides for secrets and
// defaults, and validates. Validation failures are fatal to the run.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("STORE_DSN")); v != "" {
		c.Store.DSN = v
	}
	for i := range c.Render {
		key := "RENDER_API_KEY_" + strings.ToUpper(strings.ReplaceAll(c.Render[i].Name, "-", "_"))
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			c.Render[i].APIKey = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Store.Schema == "" {
		c.Store.Schema = "public"
	}
	if c.Store.MaxConns <= 0 {
		c.Store.MaxConns = 2
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 20 * time.Second
	}
	if c.Fetch.ChainTimeout <= 0 {
		c.Fetch.ChainTimeout = 90 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	}
	if c.Fetch.RatePerSecond <= 0 {
		c.Fetch.RatePerSecond = 1.0
	}
	if c.Fetch.Burst <= 0 {
		c.Fetch.Burst = 2
	}
	if c.Fetch.MaxWorkers <= 0 {
		c.Fetch.MaxWorkers = len(model.AllSources)
	}
	if c.Fetch.RunDeadline <= 0 {
		c.Fetch.RunDeadline = 10 * time.Minute
	}
	if c.Dedup.TitleThreshold == 0 {
		c.Dedup.TitleThreshold = 0.85
	}
	if c.Dedup.LocationThreshold == 0 {
		c.Dedup.LocationThreshold = 0.70
	}
	if len(c.Dedup.SourcePriority) == 0 {
		for _, s := range model.AllSources {
			c.Dedup.SourcePriority = append(c.Dedup.SourcePriority, string(s))
		}
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 100
	}
	if c.Sync.Retention <= 0 {
		c.Sync.Retention = 30 * 24 * time.Hour
	}
	if c.Sync.RetryDelay <= 0 {
		c.Sync.RetryDelay = 2 * time.Second
	}
	if c.Sync.HistoryPath == "" {
		c.Sync.HistoryPath = "/data/dedup-history.json"
	}
	if c.Sync.BufferPath == "" {
		c.Sync.BufferPath = "/data/pending-batches.json"
	}
}

func (c *Config) Validate() error {
	if c.Sync.Mode < 0 {
		return &ConfigError{Field: "sync.mode", Msg: "must be >= 0"}
	}
	if len(c.Sources) == 0 {
		return &ConfigError{Field: "sources", Msg: "at least one source must be enabled"}
	}
	seen := map[string]bool{}
	for _, sc := range c.Sources {
		if !model.Source(sc.Type).Known() {
			return &ConfigError{Field: "sources.type", Msg: fmt.Sprintf("unknown source %q", sc.Type)}
		}
		if seen[sc.Type] {
			return &ConfigError{Field: "sources.type", Msg: fmt.Sprintf("source %q configured twice", sc.Type)}
		}
		seen[sc.Type] = true
		if len(sc.Localities) == 0 {
			return &ConfigError{Field: "sources.localities", Msg: fmt.Sprintf("source %q has no localities", sc.Type)}
		}
	}
	for _, th := range []struct {
		name string
		v    float64
	}{{"dedup.title_threshold", c.Dedup.TitleThreshold}, {"dedup.location_threshold", c.Dedup.LocationThreshold}} {
		if th.v <= 0 || th.v > 1 {
			return &ConfigError{Field: th.name, Msg: "must be in (0, 1]"}
		}
	}
	for _, p := range c.Dedup.SourcePriority {
		if !model.Source(p).Known() {
			return &ConfigError{Field: "dedup.source_priority", Msg: fmt.Sprintf("unknown source %q", p)}
		}
	}
	if c.Store.DSN == "" {
		return &ConfigError{Field: "store.dsn", Msg: "required (or set STORE_DSN)"}
	}
	return nil
}
