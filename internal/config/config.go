// Package config provides application configuration management for orbitaldb.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the orbitaldb configuration.
type Config struct {
	Keepalive string        `json:"keepalive"` // Grace window before an unused connection closes (e.g. "1s")
	LogLevel  string        `json:"log_level"` // error, warn, info, debug, trace
	DuckDB    DuckDBConfig  `json:"duckdb"`
	Results   ResultsConfig `json:"results"`
	Server    ServerConfig  `json:"server"`
}

// DuckDBConfig holds per-connection engine defaults.
type DuckDBConfig struct {
	MemoryLimit string `json:"memory_limit"` // e.g. "2GB"
	Threads     int    `json:"threads"`      // 0 = all cores
}

// ResultsConfig bounds query results.
type ResultsConfig struct {
	MaxRows      int    `json:"max_rows"`
	MaxExecution string `json:"max_execution"` // e.g. "30s"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

const (
	defaultKeepalive    = time.Second
	defaultMaxExecution = 30 * time.Second
)

// KeepaliveDuration returns the parsed keepalive window (default: 1s).
func (c Config) KeepaliveDuration() time.Duration {
	if c.Keepalive != "" {
		if d, err := time.ParseDuration(c.Keepalive); err == nil && d > 0 {
			return d
		}
	}
	return defaultKeepalive
}

// MaxExecutionDuration returns the parsed query timeout (default: 30s).
func (c ResultsConfig) MaxExecutionDuration() time.Duration {
	if c.MaxExecution != "" {
		if d, err := time.ParseDuration(c.MaxExecution); err == nil && d > 0 {
			return d
		}
	}
	return defaultMaxExecution
}

// Dir returns the path to the .orbitaldb directory.
// ORBITALDB_HOME overrides the default of ~/.orbitaldb.
func Dir() (string, error) {
	if dir := os.Getenv("ORBITALDB_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".orbitaldb"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Load loads the configuration from ~/.orbitaldb/config.json and applies
// environment overrides. A missing file yields (and persists) the defaults.
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		return Config{}, err
	}

	config := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Best effort: defaults still apply when the directory is read-only.
		_ = Save(config)
	case err != nil:
		return Config{}, err
	default:
		// Start from defaults so missing keys get correct values.
		if err := json.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Default returns a default configuration with all defaults set.
func Default() Config {
	return Config{
		Keepalive: "1s",
		LogLevel:  "info",
		DuckDB: DuckDBConfig{
			MemoryLimit: "2GB",
			Threads:     2,
		},
		Results: ResultsConfig{
			MaxRows:      1000,
			MaxExecution: "30s",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: DefaultPort,
		},
	}
}

// DefaultPort is the default HTTP port for orbitaldb serve.
const DefaultPort = 7480

// applyEnv overlays ORBITALDB_* environment variables.
func applyEnv(c *Config) error {
	if v := os.Getenv("ORBITALDB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ORBITALDB_KEEPALIVE"); v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("ORBITALDB_KEEPALIVE: %w", err)
		}
		c.Keepalive = v
	}
	if v := os.Getenv("ORBITALDB_MEMORY_LIMIT"); v != "" {
		c.DuckDB.MemoryLimit = v
	}
	if v := os.Getenv("ORBITALDB_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("ORBITALDB_THREADS: invalid value %q", v)
		}
		c.DuckDB.Threads = n
	}
	if v := os.Getenv("ORBITALDB_RESULT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("ORBITALDB_RESULT_LIMIT: invalid value %q", v)
		}
		c.Results.MaxRows = n
	}
	return nil
}

// Save saves the configuration to ~/.orbitaldb/config.json.
func Save(config Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}
