// Package config provides configuration loading for gapd.
//
// Configuration is loaded from a YAML file and overridden with environment
// variables. This package covers the HTTP server, logging, telemetry, the
// reasoning service client, gap detection, and result ranking.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"
)

// Config holds the complete gapd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Reasoning ReasoningConfig `koanf:"reasoning"`
	Detection DetectionConfig `koanf:"detection"`
	Ranking   RankingConfig   `koanf:"ranking"`

	// k is the merged file+env tree Load built, kept for Section.
	k *koanf.Koanf
}

// Section unmarshals one top-level configuration section into out, with the
// same decode hooks as the main load. Keys absent from the file and
// environment leave out untouched, so callers pass a defaults-populated
// struct. Packages whose configuration types cannot live here (the logging
// section carries zapcore types) load themselves through this.
func (c *Config) Section(path string, out any) error {
	if c.k == nil {
		return nil
	}
	return c.k.Unmarshal(path, out)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig mirrors the level and format keys of the logging section
// for early validation. The full section, including outputs, sampling, and
// redaction, is decoded into the logging package's Config through Section.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Endpoint       string  `koanf:"endpoint"`
	Protocol       string  `koanf:"protocol"` // "grpc" or "http/protobuf"
	ServiceName    string  `koanf:"service_name"`
	ServiceVersion string  `koanf:"service_version"`
	Insecure       bool    `koanf:"insecure"`
	SamplingRate   float64 `koanf:"sampling_rate"`
}

// ReasoningConfig holds the reasoning service client configuration.
type ReasoningConfig struct {
	BaseURL    string   `koanf:"base_url"`
	Model      string   `koanf:"model"`
	APIKey     Secret   `koanf:"api_key"`
	MaxTokens  int      `koanf:"max_tokens"`
	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`
	RateLimit  float64  `koanf:"rate_limit"` // requests per second
	RateBurst  int      `koanf:"rate_burst"`
}

// DetectionConfig holds content-gap detection configuration.
type DetectionConfig struct {
	WindowSize     int      `koanf:"window_size"`     // events per run
	Lookback       Duration `koanf:"lookback"`        // ignore events older than this
	MinClusterSize int      `koanf:"min_cluster_size"`
	MaxClusters    int      `koanf:"max_clusters"`    // synthesis fan-out cap per run
	MaxConcurrent  int      `koanf:"max_concurrent"`  // parallel reasoning calls
}

// RankingConfig holds score thresholds and result caps for the ranked flows.
type RankingConfig struct {
	SearchMinScore   float64 `koanf:"search_min_score"`
	SearchMaxResults int     `koanf:"search_max_results"`
	RecommendMax     int     `koanf:"recommend_max_results"`
	SuggestMinScore  float64 `koanf:"suggest_min_score"`
	SuggestMax       int     `koanf:"suggest_max_results"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9270
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "gapd"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}
	if cfg.Telemetry.SamplingRate == 0 {
		cfg.Telemetry.SamplingRate = 1.0
	}

	if cfg.Reasoning.BaseURL == "" {
		cfg.Reasoning.BaseURL = "http://localhost:11434"
	}
	if cfg.Reasoning.Model == "" {
		cfg.Reasoning.Model = "gpt-4o-mini"
	}
	if cfg.Reasoning.MaxTokens == 0 {
		cfg.Reasoning.MaxTokens = 1024
	}
	if cfg.Reasoning.Timeout == 0 {
		cfg.Reasoning.Timeout = Duration(30 * time.Second)
	}
	if cfg.Reasoning.MaxRetries == 0 {
		cfg.Reasoning.MaxRetries = 1
	}
	if cfg.Reasoning.RateLimit == 0 {
		cfg.Reasoning.RateLimit = 50.0 / 60.0
	}
	if cfg.Reasoning.RateBurst == 0 {
		cfg.Reasoning.RateBurst = 5
	}

	if cfg.Detection.WindowSize == 0 {
		cfg.Detection.WindowSize = 500
	}
	if cfg.Detection.Lookback == 0 {
		cfg.Detection.Lookback = Duration(30 * 24 * time.Hour)
	}
	if cfg.Detection.MinClusterSize == 0 {
		cfg.Detection.MinClusterSize = 2
	}
	if cfg.Detection.MaxClusters == 0 {
		cfg.Detection.MaxClusters = 10
	}
	if cfg.Detection.MaxConcurrent == 0 {
		cfg.Detection.MaxConcurrent = 4
	}

	if cfg.Ranking.SearchMinScore == 0 {
		cfg.Ranking.SearchMinScore = 0.3
	}
	if cfg.Ranking.SearchMaxResults == 0 {
		cfg.Ranking.SearchMaxResults = 6
	}
	if cfg.Ranking.RecommendMax == 0 {
		cfg.Ranking.RecommendMax = 8
	}
	if cfg.Ranking.SuggestMinScore == 0 {
		cfg.Ranking.SuggestMinScore = 0.5
	}
	if cfg.Ranking.SuggestMax == 0 {
		cfg.Ranking.SuggestMax = 3
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry sampling rate must be in [0,1], got %v", c.Telemetry.SamplingRate)
		}
	}

	if c.Reasoning.BaseURL == "" {
		return errors.New("reasoning base URL cannot be empty")
	}
	if c.Reasoning.Timeout.Duration() <= 0 {
		return errors.New("reasoning timeout must be positive")
	}
	if c.Reasoning.MaxRetries < 0 {
		return fmt.Errorf("reasoning max retries cannot be negative: %d", c.Reasoning.MaxRetries)
	}

	if c.Detection.WindowSize < 1 {
		return fmt.Errorf("detection window size must be >= 1, got %d", c.Detection.WindowSize)
	}
	if c.Detection.Lookback.Duration() <= 0 {
		return errors.New("detection lookback must be positive")
	}
	if c.Detection.MinClusterSize < 1 {
		return fmt.Errorf("minimum cluster size must be >= 1, got %d", c.Detection.MinClusterSize)
	}
	if c.Detection.MaxClusters < 1 {
		return fmt.Errorf("max clusters must be >= 1, got %d", c.Detection.MaxClusters)
	}
	if c.Detection.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent synthesis must be >= 1, got %d", c.Detection.MaxConcurrent)
	}

	if c.Ranking.SearchMinScore < 0 || c.Ranking.SearchMinScore > 1 {
		return fmt.Errorf("search min score must be in [0,1], got %v", c.Ranking.SearchMinScore)
	}
	if c.Ranking.SuggestMinScore < 0 || c.Ranking.SuggestMinScore > 1 {
		return fmt.Errorf("suggest min score must be in [0,1], got %v", c.Ranking.SuggestMinScore)
	}
	if c.Ranking.SearchMaxResults < 1 || c.Ranking.RecommendMax < 1 || c.Ranking.SuggestMax < 1 {
		return errors.New("result caps must be >= 1")
	}

	return nil
}
