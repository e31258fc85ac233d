// FILE: logship/src/cmd/logship/metrics.go
package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/version"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// metricsServer exposes the registry over HTTP
type metricsServer struct {
	server   *fasthttp.Server
	listener net.Listener
	addr     string
}

// newRegistry returns a registry with runtime and process collectors
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func startMetricsServer(cfg *config.MetricsConfig, reg *prometheus.Registry) (*metricsServer, error) {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	path := cfg.Path
	handler := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != path {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		metricsHandler(ctx)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.FormatInt(cfg.Port, 10))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ms := &metricsServer{
		server: &fasthttp.Server{
			Handler:      handler,
			Name:         version.UserAgent(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			Logger:       fasthttpLogger{},
		},
		listener: ln,
		addr:     ln.Addr().String(),
	}

	go func() {
		if err := ms.server.Serve(ln); err != nil {
			logger.Error("msg", "Metrics server stopped",
				"component", "metrics_server",
				"error", err)
		}
	}()

	logger.Info("msg", "Metrics endpoint listening",
		"component", "metrics_server",
		"address", ms.addr,
		"path", path)
	return ms, nil
}

func (ms *metricsServer) shutdown() {
	if ms == nil {
		return
	}
	if err := ms.server.Shutdown(); err != nil {
		logger.Warn("msg", "Metrics server shutdown error",
			"component", "metrics_server",
			"error", err)
	}
}

// fasthttpLogger routes fasthttp's internal messages to the agent logger
type fasthttpLogger struct{}

func (fasthttpLogger) Printf(format string, args ...any) {
	logger.Debug("msg", fmt.Sprintf(format, args...), "component", "metrics_server")
}
