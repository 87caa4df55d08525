package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Database is the SQLite file path (or DSN) holding items, completions
	// and ignore scopes.
	Database string `yaml:"database" json:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxOccurrencesPerItem caps how many instants one item may contribute
	// to a single query.
	MaxOccurrencesPerItem int `yaml:"max_occurrences_per_item" json:"max_occurrences_per_item"`

	// MaxWindowDays rejects query windows longer than this many days.
	MaxWindowDays int `yaml:"max_window_days" json:"max_window_days"`

	// Workers bounds how many items are expanded concurrently. Zero means
	// one per CPU.
	Workers int `yaml:"workers" json:"workers"`

	// ParseCacheSweep is a cron-style schedule (e.g. "*/10 * * * *") for
	// dropping idle entries from the in-memory parse memo.
	ParseCacheSweep string `yaml:"parse_cache_sweep" json:"parse_cache_sweep"`

	// ParseCacheTTLMinutes is how long an unused memo entry survives.
	ParseCacheTTLMinutes int `yaml:"parse_cache_ttl_minutes" json:"parse_cache_ttl_minutes"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen          = "127.0.0.1:8080"
	defaultDatabase        = "/var/lib/taskcal/taskcal.db"
	defaultLogLevel        = "info"
	defaultMaxOccurrences  = 5000
	defaultMaxWindowDays   = 1830
	defaultParseCacheSweep = "*/10 * * * *"
	defaultParseCacheTTL   = 60
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                defaultListen,
		Database:              defaultDatabase,
		LogLevel:              defaultLogLevel,
		MaxOccurrencesPerItem: defaultMaxOccurrences,
		MaxWindowDays:         defaultMaxWindowDays,
		Workers:               runtime.NumCPU(),
		ParseCacheSweep:       defaultParseCacheSweep,
		ParseCacheTTLMinutes:  defaultParseCacheTTL,
		BasicAuth:             nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.MaxOccurrencesPerItem <= 0 {
		c.MaxOccurrencesPerItem = defaultMaxOccurrences
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = defaultMaxWindowDays
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if strings.TrimSpace(c.ParseCacheSweep) == "" {
		c.ParseCacheSweep = defaultParseCacheSweep
	}
	if c.ParseCacheTTLMinutes <= 0 {
		c.ParseCacheTTLMinutes = defaultParseCacheTTL
	}
	// Half-configured credentials disable auth rather than lock everyone out.
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
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

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700 if needed.
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

	tmp, err := os.CreateTemp(dir, ".taskcal-config-*.tmp")
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
