// Package config loads nyx configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// NYX_* environment variables, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/nyx/internal/logging"
)

// Config holds the complete nyx configuration.
type Config struct {
	Brain     BrainConfig     `koanf:"brain"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
	HTTP      HTTPConfig      `koanf:"http"`
	NATS      NATSConfig      `koanf:"nats"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// BrainConfig configures the pipeline and reward table.
type BrainConfig struct {
	DataDir      string  `koanf:"data_dir"`
	HistorySize  int     `koanf:"history_size"`
	LearningRate float64 `koanf:"learning_rate"`
}

// FeedbackConfig configures escalation thresholds and pending retention.
type FeedbackConfig struct {
	AskThreshold    float64  `koanf:"ask_threshold"`
	NotifyThreshold float64  `koanf:"notify_threshold"`
	PendingTTL      Duration `koanf:"pending_ttl"`
	MaxPending      int      `koanf:"max_pending"`
}

// HTTPConfig configures the optional HTTP control surface.
type HTTPConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	RateLimit       float64  `koanf:"rate_limit"`
	RateBurst       int      `koanf:"rate_burst"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// NATSConfig configures the optional feedback bus.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	Token         Secret `koanf:"token"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	Protocol     string  `koanf:"protocol"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Brain: BrainConfig{
			DataDir:      defaultDataDir(),
			HistorySize:  50,
			LearningRate: 0.1,
		},
		Feedback: FeedbackConfig{
			AskThreshold:    0.70,
			NotifyThreshold: 0.80,
			PendingTTL:      Duration(10 * time.Minute),
			MaxPending:      100,
		},
		HTTP: HTTPConfig{
			Host:            "localhost",
			Port:            9191,
			RateLimit:       10,
			RateBurst:       20,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "nyx.feedback",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "nyx",
			SamplingRate: 1.0,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Brain.DataDir) == "" {
		errs = append(errs, errors.New("brain.data_dir is required"))
	}
	if c.Brain.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("brain.history_size must be positive, got %d", c.Brain.HistorySize))
	}
	if c.Brain.LearningRate <= 0 || c.Brain.LearningRate > 1 {
		errs = append(errs, fmt.Errorf("brain.learning_rate must be in (0,1], got %g", c.Brain.LearningRate))
	}

	f := c.Feedback
	if f.AskThreshold < 0 || f.NotifyThreshold > 1 || f.AskThreshold > f.NotifyThreshold {
		errs = append(errs, fmt.Errorf("feedback thresholds must satisfy 0 <= ask (%g) <= notify (%g) <= 1",
			f.AskThreshold, f.NotifyThreshold))
	}
	if f.PendingTTL.Duration() <= 0 {
		errs = append(errs, errors.New("feedback.pending_ttl must be positive"))
	}
	if f.MaxPending < 1 {
		errs = append(errs, fmt.Errorf("feedback.max_pending must be positive, got %d", f.MaxPending))
	}

	if c.HTTP.Enabled {
		if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid http port: %d (must be 1-65535)", c.HTTP.Port))
		}
		if c.HTTP.RateLimit < 0 {
			errs = append(errs, errors.New("http.rate_limit cannot be negative"))
		}
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}

	if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.ServiceName == "" {
			errs = append(errs, errors.New("service name required when telemetry is enabled"))
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol))
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sampling_rate must be in [0,1], got %g", c.Telemetry.SamplingRate))
		}
	}

	return errors.Join(errs...)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "nyx")
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
