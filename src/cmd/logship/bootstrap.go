// FILE: logship/src/cmd/logship/bootstrap.go
package main

import (
	"context"
	"fmt"
	"strings"

	"logship/src/internal/appender"
	"logship/src/internal/config"
	"logship/src/internal/service"
	"logship/src/internal/sink"
	"logship/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/prometheus/client_golang/prometheus"
)

// bootstrapAppender builds the appender with its fallback sink and starts it
func bootstrapAppender(cfg *config.AppenderConfig, reg prometheus.Registerer) (*appender.Appender, error) {
	var opts []appender.Option
	if reg != nil {
		opts = append(opts, appender.WithMetrics(reg))
	}

	app, err := appender.New(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}

	fallback, err := sink.New(cfg.Fallback, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback sink: %w", err)
	}
	if fallback != nil {
		if err := app.AttachFallback(fallback); err != nil {
			return nil, err
		}
	}

	if err := app.Start(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrapService wires the configured inputs into the appender
func bootstrapService(ctx context.Context, cfg *config.Config, app *appender.Appender) (*service.Service, error) {
	svc, err := service.New(ctx, cfg, app, logger)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(); err != nil {
		return nil, err
	}

	logger.Info("msg", "logship started",
		"version", version.Short(),
		"inputs", len(cfg.Inputs),
		"log_group", cfg.Appender.LogGroup,
		"log_stream", cfg.Appender.LogStream)
	return svc, nil
}

// initializeLogger sets up the agent's own logger. Its output never
// passes through the appender.
func initializeLogger(cfg *config.Config, quiet bool) error {
	logger = log.NewLogger()

	var configArgs []string

	if quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")
		return logger.InitWithDefaults(configArgs...)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+cfg.Logging.Output)

	case "split":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_split_mode=true",
			"stdout_target=split")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "all":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, cfg)
		configureConsoleTarget(&configArgs, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	return logger.InitWithDefaults(configArgs...)
}

func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	file := cfg.Logging.File
	if file == nil {
		return
	}
	*configArgs = append(*configArgs,
		"directory="+file.Directory,
		"name="+file.Name,
		fmt.Sprintf("max_size_kb=%d", file.MaxSizeKB),
		fmt.Sprintf("max_total_size_kb=%d", file.MaxTotalSizeKB))

	if file.RetentionPeriod > 0 {
		*configArgs = append(*configArgs,
			fmt.Sprintf("retention_period_hrs=%.1f", file.RetentionPeriod))
	}
}

func configureConsoleTarget(configArgs *[]string, cfg *config.Config) {
	target := "stderr"
	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}

	if target == "split" {
		*configArgs = append(*configArgs, "stdout_split_mode=true", "stdout_target=split")
	} else {
		*configArgs = append(*configArgs, fmt.Sprintf("stdout_target=%s", target))
	}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
