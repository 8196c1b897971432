package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendulum/internal/config"
	"github.com/san-kum/pendulum/internal/experiment"
	"github.com/san-kum/pendulum/internal/logging"
	"github.com/san-kum/pendulum/internal/observability"
)

// session carries what every compute command needs: the merged config, a
// run-scoped logger and the metrics/tracing sinks.
type session struct {
	cfg       *config.Config
	log       logging.Logger
	runID     string
	collector *observability.Collector
	shutdown  func(context.Context) error
}

// loadConfig merges defaults < preset < config file < explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		if err := config.ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("theta0") {
		cfg.Initial.Theta0 = config.Float(theta0)
	}
	if flags.Changed("omega0") {
		cfg.Initial.Omega0 = config.Float(omega0)
	}
	if flags.Changed("integrator") {
		cfg.Solver.Method = integrator
	}
	if flags.Changed("damping") {
		cfg.Params.Damping = damping
	}
	if flags.Changed("time") {
		cfg.Horizon = horizon
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("fixed-points") {
		cfg.Field.FixedPoints = fixedPoints
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = metricsFile
	}
	if flags.Changed("trace-file") {
		cfg.Observability.TraceFile = traceFile
	}
	if flags.Changed("theme") {
		cfg.Animation.Theme = theme
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	base := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log, runID := logging.WithRunLogger(base)
	log.Debug(ctx, "config loaded",
		logging.String("preset", preset),
		logging.String("file", configFile),
		logging.String("integrator", cfg.Solver.Method),
	)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		File:        cfg.Observability.TraceFile,
		ServiceName: "pendulum",
	}, log)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		log:      log,
		runID:    runID,
		shutdown: shutdown,
	}
	if cfg.Observability.MetricsFile != "" {
		s.collector, err = observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			observability.ShutdownWithTimeout(ctx, shutdown, log)
			return nil, err
		}
	}
	return s, nil
}

func (s *session) run(ctx context.Context) (*experiment.Result, error) {
	exp := experiment.New(s.cfg,
		experiment.WithLogger(s.log),
		experiment.WithCollector(s.collector),
	)
	return exp.Run(ctx)
}

// close flushes spans and writes the metrics file. It runs on a fresh
// context so an interrupted run still records what it did.
func (s *session) close() {
	ctx := context.Background()
	if s.collector != nil {
		if err := s.collector.WriteTextfile(s.cfg.Observability.MetricsFile); err != nil {
			s.log.Warn(ctx, "failed to write metrics", logging.Err(err))
		} else {
			s.log.Debug(ctx, "metrics written", logging.String("file", s.cfg.Observability.MetricsFile))
		}
	}
	observability.ShutdownWithTimeout(ctx, s.shutdown, s.log)
}

// withRun opens a session, computes a run and hands both to fn.
func withRun(cmd *cobra.Command, fn func(ctx context.Context, s *session, res *experiment.Result) error) error {
	ctx := cmd.Context()
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.run(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, s, res)
}
