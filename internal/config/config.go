package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	LLM      LLMConfig      `json:"llm"`
	Cache    CacheConfig    `json:"cache"`
	Pipeline PipelineConfig `json:"pipeline"`
	History  HistoryConfig  `json:"history"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig represents warehouse connection configuration
type DatabaseConfig struct {
	Driver           string `json:"driver"             env:"DB_DRIVER"            envDefault:"duckdb"` // duckdb, postgres
	Path             string `json:"path"               env:"DB_PATH"              envDefault:"~/.config/sqlsage/warehouse.db"`
	DSN              string `json:"dsn"                env:"DB_DSN"               envDefault:""` // postgres connection string
	MaxConnections   int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"   envDefault:"10"`
	MaxIdleConns     int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime  string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime  string `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	StatementTimeout string `json:"statement_timeout"  env:"DB_STATEMENT_TIMEOUT" envDefault:"30s"`
	MaxRows          int    `json:"max_rows"           env:"DB_MAX_ROWS"          envDefault:"1000"`
}

// LLMConfig represents model provider configuration
type LLMConfig struct {
	Provider       string `json:"provider"        env:"LLM_PROVIDER"        envDefault:"openai"` // openai, ollama
	APIKey         string `json:"api_key"         env:"LLM_API_KEY"         envDefault:""`
	BaseURL        string `json:"base_url"        env:"LLM_BASE_URL"        envDefault:""`
	SimpleModel    string `json:"simple_model"    env:"LLM_SIMPLE_MODEL"    envDefault:"gpt-4o-mini"`
	ComplexModel   string `json:"complex_model"   env:"LLM_COMPLEX_MODEL"   envDefault:"gpt-4o"`
	EmbeddingModel string `json:"embedding_model" env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Timeout        string `json:"timeout"         env:"LLM_TIMEOUT"         envDefault:"60s"`
	RetryAttempts  int    `json:"retry_attempts"  env:"LLM_RETRY_ATTEMPTS"  envDefault:"2"`
	RetryDelay     string `json:"retry_delay"     env:"LLM_RETRY_DELAY"     envDefault:"2s"`
	EnableFallback bool   `json:"enable_fallback" env:"LLM_ENABLE_FALLBACK" envDefault:"true"`
}

// CacheConfig represents result caching configuration
type CacheConfig struct {
	Backend            string  `json:"backend"              env:"CACHE_BACKEND"              envDefault:"memory"` // memory, file
	Directory          string  `json:"directory"            env:"CACHE_DIR"                  envDefault:"~/.cache/sqlsage"`
	MaxSizeMB          int     `json:"max_size_mb"          env:"CACHE_MAX_SIZE_MB"          envDefault:"100"`
	SQLTTLSeconds      int     `json:"sql_ttl_seconds"      env:"CACHE_SQL_TTL_SECONDS"      envDefault:"3600"`
	CleanupFreq        string  `json:"cleanup_frequency"    env:"CACHE_CLEANUP_FREQ"         envDefault:"10m"`
	SemanticEnabled    bool    `json:"semantic_enabled"     env:"CACHE_SEMANTIC_ENABLED"     envDefault:"true"`
	SemanticThreshold  float64 `json:"semantic_threshold"   env:"CACHE_SEMANTIC_THRESHOLD"   envDefault:"0.90"`
	SemanticTTLSeconds int     `json:"semantic_ttl_seconds" env:"CACHE_SEMANTIC_TTL_SECONDS" envDefault:"3600"`
}

// PipelineConfig represents query pipeline behavior
type PipelineConfig struct {
	RecoveryEnabled  bool `json:"recovery_enabled"   env:"RECOVERY_ENABLED"   envDefault:"true"`
	SchemaTTLSeconds int  `json:"schema_ttl_seconds" env:"SCHEMA_TTL_SECONDS" envDefault:"300"`
	DefaultLimit     int  `json:"default_limit"      env:"DEFAULT_LIMIT"      envDefault:"100"`
}

// HistoryConfig represents the query history sink
type HistoryConfig struct {
	Enabled bool   `json:"enabled" env:"HISTORY_ENABLED" envDefault:"true"`
	Path    string `json:"path"    env:"HISTORY_PATH"    envDefault:"~/.config/sqlsage/history.db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/sqlsage/logs/app.log"`
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// Start with empty configuration (defaults will be set by env.Parse)
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "SQLSAGE_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "db-dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Database.DSN = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "no-semantic-cache":
			if b, ok := value.(bool); ok && b {
				config.Cache.SemanticEnabled = false
			}
		case "no-recovery":
			if b, ok := value.(bool); ok && b {
				config.Pipeline.RecoveryEnabled = false
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validDrivers := map[string]bool{"duckdb": true, "postgres": true}
	if !validDrivers[strings.ToLower(config.Database.Driver)] {
		return fmt.Errorf(
			"invalid database driver: %s (must be duckdb or postgres)",
			config.Database.Driver,
		)
	}

	if strings.ToLower(config.Database.Driver) == "postgres" && config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for the postgres driver")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validBackends := map[string]bool{"memory": true, "file": true}
	if !validBackends[strings.ToLower(config.Cache.Backend)] {
		return fmt.Errorf(
			"invalid cache backend: %s (must be memory or file)",
			config.Cache.Backend,
		)
	}

	if config.Cache.SemanticThreshold < 0 || config.Cache.SemanticThreshold > 1 {
		return fmt.Errorf(
			"semantic threshold must be between 0 and 1: %f",
			config.Cache.SemanticThreshold,
		)
	}

	if _, err := time.ParseDuration(config.Database.StatementTimeout); err != nil {
		return fmt.Errorf("invalid statement timeout: %s", config.Database.StatementTimeout)
	}

	if _, err := time.ParseDuration(config.Cache.CleanupFreq); err != nil {
		return fmt.Errorf("invalid cache cleanup frequency: %s", config.Cache.CleanupFreq)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid LLM timeout: %s", config.LLM.Timeout)
	}

	if _, err := time.ParseDuration(config.LLM.RetryDelay); err != nil {
		return fmt.Errorf("invalid LLM retry delay: %s", config.LLM.RetryDelay)
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	if config.Database.MaxRows <= 0 {
		return fmt.Errorf("database max rows must be positive: %d", config.Database.MaxRows)
	}

	return nil
}

// StatementTimeout returns the parsed statement timeout duration
func (c *DatabaseConfig) StatementTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.StatementTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// TimeoutDuration returns the parsed per-request LLM timeout
func (c *LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// RetryDelayDuration returns the parsed delay between retry attempts
func (c *LLMConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 2 * time.Second
	}

	return d
}

// SQLCacheTTL returns the exact-match cache TTL as a duration
func (c *CacheConfig) SQLCacheTTL() time.Duration {
	return time.Duration(c.SQLTTLSeconds) * time.Second
}

// SemanticTTL returns the semantic cache TTL as a duration
func (c *CacheConfig) SemanticTTL() time.Duration {
	return time.Duration(c.SemanticTTLSeconds) * time.Second
}

// SchemaTTL returns the schema snapshot TTL as a duration
func (c *PipelineConfig) SchemaTTL() time.Duration {
	return time.Duration(c.SchemaTTLSeconds) * time.Second
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	// Check for custom config path from environment
	if configPath := os.Getenv("SQLSAGE_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "sqlsage", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = expandPath(c.Database.Path)
	c.Cache.Directory = expandPath(c.Cache.Directory)
	c.History.Path = expandPath(c.History.Path)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/sqlsage"
	}

	return filepath.Join(homeDir, ".config", "sqlsage")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.Cache.Directory,
		filepath.Dir(c.History.Path),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
