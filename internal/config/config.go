// Package config loads timebird's YAML configuration file and watches it
// for changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Environment    string        `yaml:"environment"`
	BaseURL        string        `yaml:"baseURL"`
	PageSize       int           `yaml:"pageSize"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	LogLevel       string        `yaml:"logLevel"`
	LogFile        string        `yaml:"logFile"`
}

func Default() *Config {
	return &Config{
		Environment:    EnvProduction,
		BaseURL:        "https://moneybird.com/api/v2",
		PageSize:       20,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
	}
}

// Dir returns ~/.config/timebird.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timebird"), nil
}

func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the file at path. An empty path means the default location,
// where a missing file yields the defaults. A missing explicit file is an
// error.
func Load(path string) (*Config, error) {
	useDefaultConf := path == ""
	if useDefaultConf {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}

	conf := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && useDefaultConf {
			return conf, nil
		}
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	conf.fill()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// fill restores defaults for keys the file set to their zero value.
func (c *Config) fill() {
	d := Default()
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (c *Config) Validate() error {
	switch c.Environment {
	case EnvProduction, EnvDevelopment:
	default:
		return fmt.Errorf("environment must be %q or %q, got %q", EnvProduction, EnvDevelopment, c.Environment)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// Level is the configured log level. Validate has already rejected bad
// values, so parse errors fall back to info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// LogPath returns LogFile, or timebird.log next to the config file.
func (c *Config) LogPath() (string, error) {
	if c.LogFile != "" {
		return c.LogFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "timebird.log"), nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
