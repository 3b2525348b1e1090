/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/sitecheck/pkg/archive"
	"github.com/carverauto/sitecheck/pkg/cli"
	"github.com/carverauto/sitecheck/pkg/config"
	"github.com/carverauto/sitecheck/pkg/eapi"
	"github.com/carverauto/sitecheck/pkg/lifecycle"
	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/carverauto/sitecheck/pkg/snapshot"
	"github.com/carverauto/sitecheck/pkg/version"
)

const defaultConfigFile = "sitecheck.json"

var (
	errFailedToLoadConfig   = errors.New("failed to load sitecheck configuration")
	errFailedToLoadProfiles = errors.New("failed to load connection profiles")
	errFailedToInitLogger   = errors.New("failed to initialize logger")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

type options struct {
	configFile string
	nodesFile  string
	outputDir  string
	timeout    time.Duration
	version    bool
	devices    []string
	explicit   map[string]bool
}

func parseFlags() *options {
	opts := &options{explicit: make(map[string]bool)}

	flag.StringVar(&opts.configFile, "config", defaultConfigFile, "Path to sitecheck config file")
	flag.StringVar(&opts.nodesFile, "nodes", "", "Path to eAPI connection profiles")
	flag.StringVar(&opts.outputDir, "out", "", "Directory for report files")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Per-query timeout")
	flag.BoolVar(&opts.version, "version", false, "Print version and exit")

	flag.Parse()

	flag.Visit(func(f *flag.Flag) { opts.explicit[f.Name] = true })
	opts.devices = flag.Args()

	return opts
}

func run() error {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(ctx, cfg.Logging); err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitLogger, err)
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shut down logger: %v", err)
		}
	}()

	appLog := lifecycle.CreateComponentLogger("sitecheck")

	runnerOpts := []snapshot.RunnerOption{snapshot.WithConsole(os.Stdout)}

	if m := setupMetrics(ctx, cfg, appLog); m != nil {
		runnerOpts = append(runnerOpts, snapshot.WithMetrics(m))
	}

	sinks := setupArchives(ctx, cfg, appLog)
	if len(sinks) > 0 {
		runnerOpts = append(runnerOpts, snapshot.WithSink(sinks))

		defer func() {
			if err := sinks.Close(context.WithoutCancel(ctx)); err != nil {
				appLog.Warn().Err(err).Msg("Failed to close archive sinks")
			}
		}()
	}

	profiles, err := eapi.LoadProfiles(cfg.NodesFile)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadProfiles, err)
	}

	dialer := &eapi.Dialer{
		Profiles: profiles,
		Logger:   lifecycle.CreateComponentLogger("eapi"),
		Stdin:    os.Stdin,
		Prompt:   os.Stderr,
	}

	runner := snapshot.NewRunner(cfg, dialer, lifecycle.CreateComponentLogger("snapshot"), runnerOpts...)

	appLog.Info().
		Int("devices", len(cfg.Devices)).
		Str("output_dir", cfg.OutputDir).
		Str("version", version.GetVersion()).
		Msg("Starting site check")

	results := runner.Run(ctx, cfg.Devices)

	if err := cli.WriteSummary(os.Stdout, results); err != nil {
		appLog.Warn().Err(err).Msg("Failed to write summary")
	}

	return nil
}

// loadConfig reads the config file, applies flag and positional overrides,
// then validates. A missing default config file is not an error.
func loadConfig(ctx context.Context, opts *options) (*snapshot.Config, error) {
	cfg := &snapshot.Config{}
	loader := config.NewConfig(nil)

	if shouldLoadConfig(opts) {
		if err := loader.Load(ctx, opts.configFile, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
		}
	}

	if opts.nodesFile != "" {
		cfg.NodesFile = opts.nodesFile
	}

	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	if opts.explicit["timeout"] {
		cfg.QueryTimeout = models.Duration(opts.timeout)
	}

	if len(opts.devices) > 0 {
		cfg.Devices = opts.devices
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	return cfg, nil
}

func shouldLoadConfig(opts *options) bool {
	if config.FromEnv() || opts.explicit["config"] {
		return true
	}

	_, err := os.Stat(opts.configFile)

	return err == nil
}

func setupMetrics(ctx context.Context, cfg *snapshot.Config, log logger.Logger) *snapshot.Metrics {
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		return nil
	}

	otelCfg := logger.DefaultOTelConfig()
	if cfg.Logging != nil {
		otelCfg = cfg.Logging.OTel
	}

	provider, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    "sitecheck",
		ServiceVersion: version.GetVersion(),
		OTel:           &otelCfg,
		ExportInterval: time.Duration(cfg.Metrics.ExportInterval),
	})
	if err != nil {
		if errors.Is(err, logger.ErrOTelMetricsDisabled) {
			log.Warn().Msg("Metrics enabled but no OTel endpoint is configured")
		} else {
			log.Warn().Err(err).Msg("Failed to initialize metrics")
		}

		return nil
	}

	m, err := snapshot.NewMetrics(provider.Meter("sitecheck"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create metric instruments")
		return nil
	}

	return m
}

// setupArchives connects the configured archive sinks. A sink that cannot be
// reached is skipped so reports are still written.
func setupArchives(ctx context.Context, cfg *snapshot.Config, log logger.Logger) archive.Multi {
	var sinks archive.Multi

	if cfg.NATS != nil {
		a, err := archive.NewNATSArchiver(ctx, cfg.NATS, lifecycle.CreateComponentLogger("archive-nats"))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS archive disabled")
		} else {
			sinks = append(sinks, a)
		}
	}

	if cfg.Mongo != nil {
		a, err := archive.NewMongoArchiver(ctx, cfg.Mongo, lifecycle.CreateComponentLogger("archive-mongo"))
		if err != nil {
			log.Warn().Err(err).Str("database", cfg.Mongo.Database).Msg("MongoDB archive disabled")
		} else {
			sinks = append(sinks, a)
		}
	}

	return sinks
}
