package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/assistant"
	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/config"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/modules"
	"github.com/fyrsmithlabs/nyx/internal/telemetry"
)

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr since
// stdout carries the response protocol.
func newLogger(cfg config.LoggingConfig, otelProvider log.LoggerProvider) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Format
	lc.Output.OTEL = otelProvider != nil
	lc.Fields["version"] = version
	return logging.NewLogger(lc, otelProvider)
}

func telemetryConfig(cfg config.TelemetryConfig) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Enabled
	tc.Endpoint = cfg.Endpoint
	tc.Protocol = cfg.Protocol
	tc.Insecure = cfg.Insecure
	tc.ServiceName = cfg.ServiceName
	tc.ServiceVersion = version
	tc.SamplingRate = cfg.SamplingRate
	return tc
}

func thresholds(cfg config.FeedbackConfig) learning.Thresholds {
	return learning.Thresholds{Ask: cfg.AskThreshold, Notify: cfg.NotifyThreshold}
}

// app holds the wired pipeline.
type app struct {
	table     *learning.RewardTable
	policy    *learning.FeedbackPolicy
	brain     *brain.Brain
	registry  *modules.Registry
	assistant *assistant.Assistant
}

// buildApp wires reward table, policy, pipeline, modules and assistant, and
// loads the reward table.
func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, tel *telemetry.Telemetry, emitter learning.FeedbackEmitter) (*app, error) {
	table := learning.NewRewardTable(cfg.Brain.DataDir,
		learning.WithLearningRate(cfg.Brain.LearningRate),
		learning.WithRewardLogger(logger.Named("rewards")),
	)

	policy := learning.NewFeedbackPolicy(table, emitter,
		learning.WithThresholds(thresholds(cfg.Feedback)),
		learning.WithPendingTTL(cfg.Feedback.PendingTTL.Duration()),
		learning.WithMaxPending(cfg.Feedback.MaxPending),
		learning.WithPolicyLogger(logger.Named("feedback")),
	)

	b := brain.New(table, policy,
		brain.WithHistorySize(cfg.Brain.HistorySize),
		brain.WithLogger(logger.Named("brain")),
		brain.WithTracerProvider(tel.TracerProvider()),
	)
	if err := b.Initialize(ctx); err != nil {
		return nil, err
	}

	registry, err := modules.NewRegistry(modules.Builtins()...)
	if err != nil {
		return nil, fmt.Errorf("registering modules: %w", err)
	}

	asst, err := assistant.New(b, policy, registry, assistant.WithLogger(logger.Named("assistant")))
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "pipeline ready",
		zap.String("data_dir", cfg.Brain.DataDir),
		zap.Strings("modules", registry.Names()),
		zap.Int("known_messages", table.Stats().KnownCount),
	)
	return &app{table: table, policy: policy, brain: b, registry: registry, assistant: asst}, nil
}
