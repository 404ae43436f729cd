package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SQLSAGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, "30s", cfg.Database.StatementTimeout)
	assert.Equal(t, 1000, cfg.Database.MaxRows)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 3600, cfg.Cache.SQLTTLSeconds)
	assert.True(t, cfg.Cache.SemanticEnabled)
	assert.InDelta(t, 0.90, cfg.Cache.SemanticThreshold, 1e-9)
	assert.True(t, cfg.Pipeline.RecoveryEnabled)
	assert.Equal(t, 300, cfg.Pipeline.SchemaTTLSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"database": map[string]interface{}{
			"driver":            "postgres",
			"dsn":               "postgres://sage@localhost/warehouse",
			"statement_timeout": "45s",
		},
		"cache": map[string]interface{}{
			"semantic_threshold": 0.85,
			"sql_ttl_seconds":    600,
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)

	err = os.WriteFile(configPath, data, 0600)
	require.NoError(t, err)

	config := &Config{}
	err = loadConfigFromFile(config, configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "postgres://sage@localhost/warehouse", config.Database.DSN)
	assert.Equal(t, "45s", config.Database.StatementTimeout)
	assert.InDelta(t, 0.85, config.Cache.SemanticThreshold, 1e-9)
	assert.Equal(t, 600, config.Cache.SQLTTLSeconds)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	err := os.WriteFile(configPath, []byte("invalid json"), 0600)
	require.NoError(t, err)

	config := &Config{}
	err = loadConfigFromFile(config, configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SQLSAGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("SQLSAGE_DB_DRIVER", "postgres")
	t.Setenv("SQLSAGE_DB_DSN", "postgres://env@localhost/dw")
	t.Setenv("SQLSAGE_CACHE_SEMANTIC_THRESHOLD", "0.95")
	t.Setenv("SQLSAGE_RECOVERY_ENABLED", "false")
	t.Setenv("SQLSAGE_LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env@localhost/dw", cfg.Database.DSN)
	assert.InDelta(t, 0.95, cfg.Cache.SemanticThreshold, 1e-9)
	assert.False(t, cfg.Pipeline.RecoveryEnabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvironmentPrefixAppliedOnce(t *testing.T) {
	t.Setenv("SQLSAGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("SQLSAGE_SQLSAGE_DB_DRIVER", "postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Only the documented single-prefix variables are honored
	assert.Equal(t, "duckdb", cfg.Database.Driver)
}

func TestFlagOverrides(t *testing.T) {
	t.Setenv("SQLSAGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{
		"db-path":           "/tmp/override.db",
		"log-level":         "debug",
		"no-semantic-cache": true,
		"no-recovery":       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Cache.SemanticEnabled)
	assert.False(t, cfg.Pipeline.RecoveryEnabled)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "invalid database driver",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.DSN = ""
			},
			wantErr: "DSN is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: "invalid cache backend",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Cache.SemanticThreshold = 1.5 },
			wantErr: "semantic threshold",
		},
		{
			name:    "bad statement timeout",
			mutate:  func(c *Config) { c.Database.StatementTimeout = "soon" },
			wantErr: "invalid statement timeout",
		},
		{
			name:    "non-positive max rows",
			mutate:  func(c *Config) { c.Database.MaxRows = 0 },
			wantErr: "max rows must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfigOK(t *testing.T) {
	assert.NoError(t, validateConfig(validBaseConfig()))
}

func TestDurationHelpers(t *testing.T) {
	cfg := validBaseConfig()

	assert.Equal(t, "30s", cfg.Database.StatementTimeout)
	assert.Equal(t, float64(3600), cfg.Cache.SQLCacheTTL().Seconds())
	assert.Equal(t, float64(300), cfg.Pipeline.SchemaTTL().Seconds())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}

func validBaseConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           "duckdb",
			Path:             "/tmp/warehouse.db",
			MaxConnections:   10,
			MaxIdleConns:     5,
			ConnMaxLifetime:  "30m",
			ConnMaxIdleTime:  "5m",
			StatementTimeout: "30s",
			MaxRows:          1000,
		},
		LLM: LLMConfig{
			Provider:      "openai",
			SimpleModel:   "gpt-4o-mini",
			ComplexModel:  "gpt-4o",
			Timeout:       "60s",
			RetryAttempts: 2,
			RetryDelay:    "2s",
		},
		Cache: CacheConfig{
			Backend:            "memory",
			SQLTTLSeconds:      3600,
			CleanupFreq:        "10m",
			SemanticEnabled:    true,
			SemanticThreshold:  0.90,
			SemanticTTLSeconds: 3600,
		},
		Pipeline: PipelineConfig{
			RecoveryEnabled:  true,
			SchemaTTLSeconds: 300,
			DefaultLimit:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
