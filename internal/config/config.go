// Package config loads and validates kbsearch configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/kbsearch/config.yaml)
//  3. Project config (.kbsearch.yaml in the working directory)
//  4. Environment variables (KBSEARCH_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "500ms"/"5s" syntax.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML renders the duration in time.Duration string syntax.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Config represents the complete kbsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	KB      KBConfig      `yaml:"kb" json:"kb"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	AI      AIConfig      `yaml:"ai" json:"ai"`
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// KBConfig configures the knowledge base data locations.
type KBConfig struct {
	// DataPath is the JSON file holding knowledge base entries.
	DataPath string `yaml:"data_path" json:"data_path"`
	// IndexPath is the SQLite full-text index file.
	// ":memory:" builds a throwaway in-memory index.
	IndexPath string `yaml:"index_path" json:"index_path"`
}

// SearchConfig configures search behavior.
type SearchConfig struct {
	// MaxResults caps the number of results returned (default: 50).
	MaxResults int `yaml:"max_results" json:"max_results"`
	// MinScore filters out results scoring below this threshold (0-100).
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// SuggestLimit caps the number of query suggestions (default: 5).
	SuggestLimit int `yaml:"suggest_limit" json:"suggest_limit"`
	// SourceTimeout bounds each retrieval source (default: 5s).
	SourceTimeout Duration `yaml:"source_timeout" json:"source_timeout"`
}

// CacheConfig configures the instant result cache.
type CacheConfig struct {
	// MaxSize is the maximum number of cached queries (default: 100).
	// The oldest entry is evicted first when full.
	MaxSize int `yaml:"max_size" json:"max_size"`
	// TTL is how long a cached result stays fresh (default: 5m).
	TTL Duration `yaml:"ttl" json:"ttl"`
	// SweepInterval is how often expired entries are removed (default: 1m).
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// AIConfig configures the optional AI collaborator used for
// semantic retrieval.
type AIConfig struct {
	// Enabled turns AI-backed retrieval on (default: false, opt-in).
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Host is the completion API endpoint (default: http://localhost:11434).
	Host string `yaml:"host" json:"host"`
	// Model is the completion model name (default: qwen3:0.6b).
	Model string `yaml:"model" json:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	// Empty means no authentication (local models).
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
	// Timeout bounds a single completion request (default: 5s).
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// Temperature controls sampling randomness (default: 0.1).
	Temperature float64 `yaml:"temperature" json:"temperature"`
	// MaxTokens caps the completion length (default: 1024).
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// MonitorConfig configures performance monitoring.
type MonitorConfig struct {
	// SlowThreshold flags operations whose mean latency exceeds it (default: 500ms).
	SlowThreshold Duration `yaml:"slow_threshold" json:"slow_threshold"`
	// SampleCapacity is recent samples kept per operation (default: 100).
	SampleCapacity int `yaml:"sample_capacity" json:"sample_capacity"`
	// ReportInterval is how often a summary is logged. Zero disables it.
	ReportInterval Duration `yaml:"report_interval" json:"report_interval"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		KB: KBConfig{
			DataPath:  defaultDataPath(),
			IndexPath: defaultIndexPath(),
		},
		Search: SearchConfig{
			MaxResults:    50,
			MinScore:      0,
			SuggestLimit:  5,
			SourceTimeout: Duration(5 * time.Second),
		},
		Cache: CacheConfig{
			MaxSize:       100,
			TTL:           Duration(5 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
		AI: AIConfig{
			Enabled:     false,
			Host:        "http://localhost:11434",
			Model:       "qwen3:0.6b",
			Timeout:     Duration(5 * time.Second),
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Monitor: MonitorConfig{
			SlowThreshold:  Duration(500 * time.Millisecond),
			SampleCapacity: 100,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".kbsearch", "kb.json")
	}
	return filepath.Join(home, ".kbsearch", "kb.json")
}

func defaultIndexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".kbsearch", "index.db")
	}
	return filepath.Join(home, ".kbsearch", "index.db")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/kbsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/kbsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kbsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "kbsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "kbsearch", "config.yaml")
}

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromDir attempts to load .kbsearch.yaml or .kbsearch.yml from dir.
func (c *Config) loadFromDir(dir string) error {
	yamlPath := filepath.Join(dir, ".kbsearch.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".kbsearch.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.KB.DataPath != "" {
		c.KB.DataPath = other.KB.DataPath
	}
	if other.KB.IndexPath != "" {
		c.KB.IndexPath = other.KB.IndexPath
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}
	if other.Search.SuggestLimit != 0 {
		c.Search.SuggestLimit = other.Search.SuggestLimit
	}
	if other.Search.SourceTimeout != 0 {
		c.Search.SourceTimeout = other.Search.SourceTimeout
	}

	if other.Cache.MaxSize != 0 {
		c.Cache.MaxSize = other.Cache.MaxSize
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}
	if other.Cache.SweepInterval != 0 {
		c.Cache.SweepInterval = other.Cache.SweepInterval
	}

	// Enabled is boolean - only merge when any AI field was set.
	if other.AI.Enabled || other.AI.Host != "" || other.AI.Model != "" {
		c.AI.Enabled = other.AI.Enabled
	}
	if other.AI.Host != "" {
		c.AI.Host = other.AI.Host
	}
	if other.AI.Model != "" {
		c.AI.Model = other.AI.Model
	}
	if other.AI.APIKeyEnv != "" {
		c.AI.APIKeyEnv = other.AI.APIKeyEnv
	}
	if other.AI.Timeout != 0 {
		c.AI.Timeout = other.AI.Timeout
	}
	if other.AI.Temperature != 0 {
		c.AI.Temperature = other.AI.Temperature
	}
	if other.AI.MaxTokens != 0 {
		c.AI.MaxTokens = other.AI.MaxTokens
	}

	if other.Monitor.SlowThreshold != 0 {
		c.Monitor.SlowThreshold = other.Monitor.SlowThreshold
	}
	if other.Monitor.SampleCapacity != 0 {
		c.Monitor.SampleCapacity = other.Monitor.SampleCapacity
	}
	if other.Monitor.ReportInterval != 0 {
		c.Monitor.ReportInterval = other.Monitor.ReportInterval
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies KBSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KBSEARCH_DATA_PATH"); v != "" {
		c.KB.DataPath = v
	}
	if v := os.Getenv("KBSEARCH_INDEX_PATH"); v != "" {
		c.KB.IndexPath = v
	}
	if v := os.Getenv("KBSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("KBSEARCH_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 100 {
			c.Search.MinScore = f
		}
	}
	if v := os.Getenv("KBSEARCH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Cache.TTL = Duration(d)
		}
	}
	if v := os.Getenv("KBSEARCH_AI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AI.Enabled = b
		}
	}
	if v := os.Getenv("KBSEARCH_AI_HOST"); v != "" {
		c.AI.Host = v
	}
	if v := os.Getenv("KBSEARCH_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("KBSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// expandPaths resolves a leading "~/" in configured paths.
func (c *Config) expandPaths() {
	c.KB.DataPath = expandHome(c.KB.DataPath)
	c.KB.IndexPath = expandHome(c.KB.IndexPath)
	c.Logging.FilePath = expandHome(c.Logging.FilePath)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 100 {
		return fmt.Errorf("search.min_score must be in [0, 100], got %g", c.Search.MinScore)
	}
	if c.Search.SuggestLimit <= 0 {
		return fmt.Errorf("search.suggest_limit must be positive, got %d", c.Search.SuggestLimit)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.AI.Enabled {
		if c.AI.Host == "" {
			return fmt.Errorf("ai.host is required when ai.enabled is true")
		}
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
		if c.AI.Timeout <= 0 {
			return fmt.Errorf("ai.timeout must be positive, got %s", c.AI.Timeout)
		}
	}
	if c.Monitor.SampleCapacity < 0 {
		return fmt.Errorf("monitor.sample_capacity must not be negative, got %d", c.Monitor.SampleCapacity)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
