// Package config loads the server configuration from defaults, an optional
// YAML file, and VISEARCH_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvConfig    = "VISEARCH_CONFIG"
	EnvPort      = "VISEARCH_PORT"
	EnvLogLevel  = "VISEARCH_LOG_LEVEL"
	EnvLogFormat = "VISEARCH_LOG_FORMAT"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// BodyLimit is the maximum request body size in bytes.
	BodyLimit int `yaml:"body_limit"`
	// SearchTimeout bounds query execution; zero means no limit.
	SearchTimeout time.Duration `yaml:"search_timeout"`
	// MaxBufferedDocs refreshes an index once its write buffer holds this
	// many docs. Zero keeps the built-in limit.
	MaxBufferedDocs int `yaml:"max_buffered_docs"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// AnalysisConfig configures analyzers.
type AnalysisConfig struct {
	// QueryCacheSize bounds the number of cached search-time analyses per
	// analyzer. Zero disables the cache.
	QueryCacheSize int `yaml:"query_cache_size"`

	// Vietnamese lists extra Vietnamese analyzers. vi_analyzer is always
	// installed and need not be listed.
	Vietnamese []VietnameseAnalyzer `yaml:"vietnamese"`
}

// VietnameseAnalyzer configures one named Vietnamese analyzer.
type VietnameseAnalyzer struct {
	Name       string `yaml:"name"`
	Dictionary string `yaml:"dictionary"`
	// DictionaryChecksum is the expected "sha256:<hex>" of the dictionary.
	DictionaryChecksum string `yaml:"dictionary_checksum"`
	MaxSyllables       int    `yaml:"max_syllables"`
	Stopwords          bool   `yaml:"stopwords"`
	StopwordsPath      string `yaml:"stopwords_path"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         9200,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			BodyLimit:    10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Analysis: AnalysisConfig{
			QueryCacheSize: 1024,
		},
	}
}

// LoadDotEnv loads environment files into the process environment. Missing
// files are ignored; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration. If path is empty, VISEARCH_CONFIG is used;
// if that is empty too, only defaults and environment overrides apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPort, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for values the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("%w: negative server timeout", ErrInvalidConfig)
	}
	if c.Server.SearchTimeout < 0 || c.Server.MaxBufferedDocs < 0 {
		return fmt.Errorf("%w: negative server.search_timeout or server.max_buffered_docs", ErrInvalidConfig)
	}
	if c.Server.BodyLimit < 0 {
		return fmt.Errorf("%w: negative server.body_limit", ErrInvalidConfig)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}

	if c.Analysis.QueryCacheSize < 0 {
		return fmt.Errorf("%w: negative analysis.query_cache_size", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Analysis.Vietnamese))
	for i, a := range c.Analysis.Vietnamese {
		if a.Name == "" {
			return fmt.Errorf("%w: analysis.vietnamese[%d]: name is required", ErrInvalidConfig, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: analysis.vietnamese[%d]: duplicate name %q", ErrInvalidConfig, i, a.Name)
		}
		seen[a.Name] = true
		if a.MaxSyllables < 0 {
			return fmt.Errorf("%w: analysis.vietnamese[%d]: negative max_syllables", ErrInvalidConfig, i)
		}
	}
	return nil
}
