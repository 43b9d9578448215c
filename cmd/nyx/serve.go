package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nyx/internal/config"
	nyxhttp "github.com/fyrsmithlabs/nyx/internal/http"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
	"github.com/fyrsmithlabs/nyx/internal/telemetry"
	"github.com/fyrsmithlabs/nyx/internal/transport/natsbus"
	"github.com/fyrsmithlabs/nyx/internal/transport/stdio"
)

func newServeCmd() *cobra.Command {
	var enableHTTP, enableNATS, watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant loop on stdin/stdout",
		Long: `Run the assistant. Commands and feedback arrive as JSON lines on stdin;
responses and feedback requests are written as JSON lines on stdout. Logs go
to stderr.

Examples:
  # Stdio only
  nyx serve

  # Also serve the HTTP API and the NATS feedback bus
  nyx serve --http --nats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTP.Enabled = enableHTTP
			}
			if cmd.Flags().Changed("nats") {
				cfg.NATS.Enabled = enableNATS
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, watch, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&enableHTTP, "http", false, "enable the HTTP API (overrides http.enabled)")
	cmd.Flags().BoolVar(&enableNATS, "nats", false, "enable the NATS feedback bus (overrides nats.enabled)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload thresholds and log level when the config file changes")
	return cmd
}

// runServe wires every surface and blocks until the input closes or ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, watch bool, in io.Reader, out io.Writer) (err error) {
	logger, err := newLogger(cfg.Logging, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.New(ctx, telemetryConfig(cfg.Telemetry), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn(ctx, "telemetry shutdown", zap.Error(shutdownErr))
		}
	}()
	if lp := tel.LoggerProvider(); lp != nil {
		if bridged, lerr := newLogger(cfg.Logging, lp); lerr == nil {
			logger = bridged
		}
	}

	stdioSrv := stdio.NewServer(in, out, stdio.WithLogger(logger.Named("stdio")))
	ctx = logging.WithSessionID(ctx, stdioSrv.Session())
	emitters := learning.MultiEmitter{stdioSrv}

	var bus *natsbus.Bus
	if cfg.NATS.Enabled {
		bus, err = natsbus.Connect(natsbus.Config{
			URL:           cfg.NATS.URL,
			Token:         cfg.NATS.Token.Value(),
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, logger.Named("nats"))
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := bus.Close(); closeErr != nil {
				logger.Warn(ctx, "closing feedback bus", zap.Error(closeErr))
			}
		}()
		emitters = append(emitters, bus)
	}

	a, err := buildApp(ctx, cfg, logger, tel, emitters)
	if err != nil {
		return err
	}

	if bus != nil {
		if err := bus.Subscribe(ctx, a.assistant); err != nil {
			return err
		}
	}

	if cfg.HTTP.Enabled {
		srv, err := nyxhttp.NewServer(a.assistant, logger.Named("http"), &nyxhttp.Config{
			Host:      cfg.HTTP.Host,
			Port:      cfg.HTTP.Port,
			RateLimit: cfg.HTTP.RateLimit,
			RateBurst: cfg.HTTP.RateBurst,
		},
			nyxhttp.WithStats(a.table),
			nyxhttp.WithPending(a.policy),
			nyxhttp.WithModules(a.registry.Names()),
			nyxhttp.WithMetrics(nyxhttp.NewHTTPMetrics(tel.MeterProvider(), logger)),
		)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error(ctx, "http server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Warn(ctx, "http shutdown", zap.Error(shutdownErr))
			}
		}()
	}

	if watch {
		if w := startWatcher(ctx, logger, a); w != nil {
			defer w.Stop()
		}
	}

	logger.Info(ctx, "nyx serving",
		zap.Bool("http", cfg.HTTP.Enabled),
		zap.Bool("nats", cfg.NATS.Enabled),
	)

	err = stdioSrv.Serve(ctx, a.assistant)

	if saveErr := a.table.Save(context.Background()); saveErr != nil {
		logger.Error(ctx, "saving reward table on shutdown", zap.Error(saveErr))
	}
	logger.Info(ctx, "nyx stopped")
	return err
}

// startWatcher hot-reloads thresholds and log level. Missing or unwatchable
// config files disable reloading without failing startup.
func startWatcher(ctx context.Context, logger *logging.Logger, a *app) *config.Watcher {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, func(c *config.Config) {
		if err := a.policy.SetThresholds(thresholds(c.Feedback)); err != nil {
			logger.Warn(ctx, "rejecting reloaded thresholds", zap.Error(err))
		}
		if lvl, err := logging.LevelFromString(c.Logging.Level); err == nil {
			logger.SetLevel(lvl)
		}
	}, logger.Named("config"))
	if err != nil {
		logger.Warn(ctx, "config reload disabled", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logger.Warn(ctx, "config reload disabled", zap.Error(err))
		w.Stop()
		return nil
	}
	return w
}
