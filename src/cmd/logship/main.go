// FILE: logship/src/cmd/logship/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/prometheus/client_golang/prometheus"
)

var logger *log.Logger

// Grace period beyond the appender's own shutdown timeout
const shutdownGrace = 5 * time.Second

func main() {
	flagCfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	initOutputHandler(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.ConfigFile != "" {
		os.Setenv("LOGSHIP_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.LoadWithCLI(flagCfg.cliArgs())
	if err != nil {
		FatalError(1, "Failed to load config: %v\n", err)
	}

	if flagCfg.DumpConfig != "" {
		if err := cfg.Redacted().SaveToFile(flagCfg.DumpConfig); err != nil {
			FatalError(1, "Failed to write config: %v\n", err)
		}
		Print("Configuration written to %s\n", flagCfg.DumpConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg, flagCfg.Quiet); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}

	code := run(cfg)
	shutdownLogger()
	os.Exit(code)
}

// run wires the agent and blocks until a signal arrives or every input
// is exhausted. It returns the process exit code.
func run(cfg *config.Config) int {
	logger.Info("msg", "logship starting",
		"version", version.String(),
		"config_file", config.GetConfigPath(),
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var registry *prometheus.Registry
	var metricsSrv *metricsServer
	if cfg.Metrics.Enabled {
		registry = newRegistry()
		srv, err := startMetricsServer(cfg.Metrics, registry)
		if err != nil {
			logger.Error("msg", "Failed to start metrics endpoint", "error", err)
			return 1
		}
		metricsSrv = srv
		defer metricsSrv.shutdown()
	}

	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}
	app, err := bootstrapAppender(cfg.Appender, reg)
	if err != nil {
		logger.Error("msg", "Failed to start appender", "error", err)
		return 1
	}

	svc, err := bootstrapService(ctx, cfg, app)
	if err != nil {
		logger.Error("msg", "Failed to start inputs", "error", err)
		app.Stop()
		return 1
	}

	go statusReporter(ctx, time.Duration(cfg.StatusIntervalSec)*time.Second, app, svc)

	select {
	case sig := <-sigChan:
		logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
			"signal", sig.String())
	case <-svc.Done():
		logger.Info("msg", "All inputs exhausted, shutting down")
	}
	cancel()

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		app.Stop()
		close(done)
	}()

	timeout := cfg.Appender.ShutdownTimeout() + shutdownGrace
	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
		return 0
	case <-time.After(timeout):
		logger.Error("msg", "Shutdown timeout exceeded, forcing exit",
			"timeout", timeout)
		return 1
	case sig := <-sigChan:
		logger.Warn("msg", "Second signal received, forcing exit",
			"signal", sig.String())
		return 1
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
