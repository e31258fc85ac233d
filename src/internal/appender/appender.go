// FILE: logship/src/internal/appender/appender.go
package appender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logship/src/internal/batch"
	"logship/src/internal/config"
	"logship/src/internal/core"
	"logship/src/internal/cwlogs"
	"logship/src/internal/delivery"
	"logship/src/internal/destination"
	"logship/src/internal/format"
	"logship/src/internal/guard"
	"logship/src/internal/identity"
	"logship/src/internal/metrics"
	"logship/src/internal/queue"
	"logship/src/internal/sink"

	"github.com/lixenwraith/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// ErrFallbackAttached is returned when a second fallback sink is attached
var ErrFallbackAttached = errors.New("a fallback sink is already attached")

// Interval between repeated queue overflow warnings
const overflowWarnInterval = 10 * time.Second

type fallbackRef struct {
	sink sink.Fallback
}

// Stats is a snapshot of the pipeline counters
type Stats struct {
	Accepted      uint64
	Dropped       uint64
	Fallback      uint64
	Delivered     uint64
	Duplicates    uint64
	FailedBatches uint64
	QueueLength   int

	// Counters of the attached fallback sink
	FallbackWritten uint64
	FallbackDropped uint64
}

// Appender is the entry point producers hand records to. Accept is safe for
// concurrent use; delivery happens on a single background worker.
type Appender struct {
	cfg    *config.AppenderConfig
	logger *log.Logger

	service    cwlogs.LogService
	factory    delivery.ServiceFactory
	metadata   identity.MetadataProvider
	tags       identity.TagProvider
	registerer prometheus.Registerer

	fallback atomic.Pointer[fallbackRef]

	mu        sync.Mutex // lifecycle
	running   atomic.Bool
	stopped   atomic.Bool
	queue     atomic.Pointer[queue.Queue]
	engine    atomic.Pointer[delivery.Engine]
	scheduler *batch.Scheduler
	metrics   *metrics.Collector

	overflowWarn *rate.Limiter
	notWiredOnce sync.Once

	accepted      atomic.Uint64
	dropped       atomic.Uint64
	fallbackCount atomic.Uint64
}

// New creates an appender. The configuration is validated by Start.
func New(cfg *config.AppenderConfig, logger *log.Logger, opts ...Option) (*Appender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("appender config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	a := &Appender{
		cfg:          cfg,
		logger:       logger,
		overflowWarn: rate.NewLimiter(rate.Every(overflowWarnInterval), 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start validates the configuration, builds the pipeline, starts the
// attached fallback sink and launches the worker. Calling Start on a
// running appender does nothing.
func (a *Appender) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running.Load() {
		return nil
	}
	if a.stopped.Load() {
		return fmt.Errorf("appender was stopped and cannot be restarted")
	}

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid appender configuration: %w", err)
	}

	formatter, err := format.NewFormatter(a.cfg.Format, a.logger)
	if err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}

	q := queue.New(int(a.cfg.InternalQueueSize))

	if a.registerer != nil {
		labels := prometheus.Labels{"log_group": a.cfg.LogGroup}
		collector, err := metrics.New(a.registerer, labels)
		if err != nil {
			return err
		}
		if err := collector.RegisterQueueLength(a.registerer, labels, func() float64 { return float64(q.Len()) }); err != nil {
			return fmt.Errorf("failed to register queue gauge: %w", err)
		}
		a.metrics = collector
	}

	engine := delivery.NewEngine(delivery.Options{
		Service:    a.service,
		Factory:    a.serviceFactory(),
		Resolver:   destination.NewResolver(a.resolverOptions(), a.logger),
		Formatter:  formatter,
		RetryCount: int(a.cfg.RetryCount),
		Fallback:   a.currentFallback,
		Metrics:    a.metrics,
	}, a.logger)

	scheduler := batch.NewScheduler(q, engine, batch.Options{
		MaxBatchSize:     int(a.cfg.MaxBatchSize),
		MaxBatchInterval: a.cfg.BatchInterval(),
		InitialDelay:     a.cfg.InitialDelay(),
	}, a.logger)

	if fb := a.currentFallback(); fb != nil && !fb.Started() {
		if err := fb.Start(); err != nil {
			a.logger.Warn("msg", "Failed to start fallback sink",
				"component", "appender",
				"fallback", fb.Name(),
				"error", err)
		}
	}

	a.queue.Store(q)
	a.engine.Store(engine)
	a.scheduler = scheduler
	scheduler.Start()
	a.running.Store(true)

	a.logger.Info("msg", "Appender started",
		"component", "appender",
		"log_group", a.cfg.LogGroup,
		"log_stream", a.cfg.LogStream,
		"queue_size", a.cfg.InternalQueueSize,
		"max_batch_size", a.cfg.MaxBatchSize,
		"max_batch_time_ms", a.cfg.MaxBatchTimeMS)
	return nil
}

func (a *Appender) serviceFactory() delivery.ServiceFactory {
	if a.factory != nil {
		return a.factory
	}
	return func() (cwlogs.LogService, error) {
		client, err := cwlogs.NewClient(a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func (a *Appender) resolverOptions() destination.Options {
	opts := destination.Options{
		Group:           a.cfg.LogGroup,
		StreamTemplate:  a.cfg.LogStream,
		CreateIfMissing: a.cfg.CreateLogDests,
		Metadata:        a.metadata,
		Tags:            a.tags,
	}
	if opts.Metadata == nil && a.cfg.Identity != nil && a.cfg.Identity.Enabled {
		imds := identity.NewIMDSClient(a.cfg.Identity, a.logger)
		opts.Metadata = imds
		if opts.Tags == nil {
			opts.Tags = imds
		}
	}
	return opts
}

// Stop flushes and drains the queue, waits for the worker up to the
// shutdown timeout, then stops the fallback sink and releases the service.
func (a *Appender) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running.Load() {
		return
	}
	a.running.Store(false)
	a.stopped.Store(true)

	joined := a.scheduler.Stop(a.cfg.ShutdownTimeout())
	if !joined {
		a.logger.Warn("msg", "Worker did not finish within shutdown timeout",
			"component", "appender",
			"timeout_ms", a.cfg.ShutdownTimeoutMS,
			"queued", a.queue.Load().Len())
	}

	if fb := a.currentFallback(); fb != nil {
		fb.Stop()
	}

	// The worker may still hold the service when the join timed out
	if joined {
		if err := a.engine.Load().Close(); err != nil {
			a.logger.Warn("msg", "Failed to close log service",
				"component", "appender",
				"error", err)
		}
	}

	stats := a.Stats()
	a.logger.Info("msg", "Appender stopped",
		"component", "appender",
		"accepted", stats.Accepted,
		"delivered", stats.Delivered,
		"fallback", stats.Fallback,
		"dropped", stats.Dropped,
		"failed_batches", stats.FailedBatches)
}

// Accept hands rec to the pipeline. It never blocks longer than the
// configured queue wait. Records produced by the pipeline itself are
// discarded.
func (a *Appender) Accept(ctx context.Context, rec core.LogRecord) {
	if ctx == nil {
		ctx = context.Background()
	}

	if guard.Active(ctx) {
		a.drop("guard")
		return
	}

	if !a.running.Load() {
		if a.stopped.Load() {
			a.drop("stopped")
			return
		}
		a.notWiredOnce.Do(func() {
			a.logger.Warn("msg", "Appender received records before Start, records are ignored",
				"component", "appender",
				"log_group", a.cfg.LogGroup)
		})
		return
	}

	if rec.Producer == "" {
		rec.Producer = core.ProducerFrom(ctx)
	}

	q := a.queue.Load()
	if q.Offer(ctx, rec, a.cfg.QueueWait()) {
		a.accepted.Add(1)
		a.metrics.Accepted()
		return
	}

	a.overflow(q, rec)
}

// overflow routes a record the queue refused to the fallback sink
func (a *Appender) overflow(q *queue.Queue, rec core.LogRecord) {
	fb := a.currentFallback()
	if fb != nil {
		fb.Accept(rec)
		a.fallbackCount.Add(1)
		a.metrics.Fallback(1)
	} else {
		a.drop("queue_full")
	}

	if a.overflowWarn.Allow() {
		a.logger.Warn("msg", "Ingest queue full",
			"component", "appender",
			"queue_size", q.Cap(),
			"max_wait_ms", a.cfg.MaxQueueWaitTimeMS,
			"fallback", fb != nil,
			"dropped_total", a.dropped.Load())
	}
}

func (a *Appender) drop(reason string) {
	a.dropped.Add(1)
	a.metrics.Dropped(reason)
}

// AttachFallback sets the fallback sink. Only one may be attached; further
// attempts are refused with a warning.
func (a *Appender) AttachFallback(s sink.Fallback) error {
	if s == nil {
		return fmt.Errorf("fallback sink cannot be nil")
	}
	if !a.fallback.CompareAndSwap(nil, &fallbackRef{sink: s}) {
		a.logger.Warn("msg", "Only one fallback sink may be attached, ignoring additional sink",
			"component", "appender",
			"attached", a.currentFallback().Name(),
			"ignored", s.Name())
		return ErrFallbackAttached
	}

	if a.running.Load() && !s.Started() {
		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start fallback sink: %w", err)
		}
	}
	return nil
}

// DetachFallback removes and returns the attached sink without stopping it
func (a *Appender) DetachFallback() sink.Fallback {
	ref := a.fallback.Swap(nil)
	if ref == nil {
		return nil
	}
	return ref.sink
}

func (a *Appender) currentFallback() sink.Fallback {
	if ref := a.fallback.Load(); ref != nil {
		return ref.sink
	}
	return nil
}

// Running reports whether the worker is active
func (a *Appender) Running() bool {
	return a.running.Load()
}

func (a *Appender) Stats() Stats {
	stats := Stats{
		Accepted: a.accepted.Load(),
		Dropped:  a.dropped.Load(),
		Fallback: a.fallbackCount.Load(),
	}
	if q := a.queue.Load(); q != nil {
		stats.QueueLength = q.Len()
	}
	if e := a.engine.Load(); e != nil {
		es := e.Stats()
		stats.Delivered = es.Delivered
		stats.Duplicates = es.Duplicates
		stats.FailedBatches = es.FailedBatches
		stats.Fallback += es.Fallback
	}
	if fb := a.currentFallback(); fb != nil {
		fs := fb.GetStats()
		stats.FallbackWritten = fs.TotalProcessed
		stats.FallbackDropped = fs.TotalDropped
	}
	return stats
}
