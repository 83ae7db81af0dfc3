package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// Recurrence
	HorizonMonths int

	// Calendar response cache
	CacheTTL time.Duration
}

// fileConfig mirrors Config for the optional YAML config file. Only
// fields present in the file override the environment.
type fileConfig struct {
	Port          string `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	HorizonMonths int    `yaml:"horizon_months"`
	CacheTTL      string `yaml:"cache_ttl"`
}

// Load builds the configuration from environment variables with sane
// defaults for a purely local, single-user install.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8086"),
		DBPath:        getEnv("EASYBUDGET_DB_PATH", defaultDBPath()),
		HorizonMonths: getEnvInt("EASYBUDGET_HORIZON_MONTHS", 12),
		CacheTTL:      getEnvDuration("EASYBUDGET_CACHE_TTL", 5*time.Minute),
	}
}

// ApplyFile overlays settings from a YAML config file. A missing file is
// not an error; a malformed one is.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.HorizonMonths != 0 {
		c.HorizonMonths = fc.HorizonMonths
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("parse cache_ttl %q: %w", fc.CacheTTL, err)
		}
		c.CacheTTL = d
	}
	return nil
}

// DefaultFilePath is where ApplyFile looks when no explicit path is given.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "easybudget.yaml"
	}
	return filepath.Join(home, ".easybudget", "easybudget.yaml")
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.HorizonMonths < 1 || c.HorizonMonths > 120 {
		problems = append(problems, fmt.Sprintf("invalid horizon %d months: must be between 1 and 120", c.HorizonMonths))
	}

	if c.CacheTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		problems = append(problems, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/easybudget.db"
	}
	return filepath.Join(home, ".easybudget", "easybudget.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
