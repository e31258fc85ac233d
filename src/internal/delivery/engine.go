// FILE: logship/src/internal/delivery/engine.go
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"logship/src/internal/core"
	"logship/src/internal/cwlogs"
	"logship/src/internal/destination"
	"logship/src/internal/format"
	"logship/src/internal/guard"
	"logship/src/internal/metrics"
	"logship/src/internal/sink"

	"github.com/lixenwraith/log"
)

// ServiceFactory builds the remote service handle on first delivery
type ServiceFactory func() (cwlogs.LogService, error)

// Options wire an Engine. Either Service or Factory provides the handle;
// Service wins when both are set.
type Options struct {
	Service    cwlogs.LogService
	Factory    ServiceFactory
	Resolver   *destination.Resolver
	Formatter  format.Formatter
	RetryCount int

	// Fallback returns the currently attached sink, or nil
	Fallback func() sink.Fallback

	Metrics *metrics.Collector
}

// Stats are the engine counters, safe to read from any goroutine
type Stats struct {
	Delivered     uint64
	Duplicates    uint64
	FailedBatches uint64
	Fallback      uint64
}

// Engine delivers batches in timestamp order using the sequence token
// protocol. It is owned by a single writer goroutine; only Stats may be
// called concurrently.
type Engine struct {
	opts   Options
	logger *log.Logger

	// Writer-owned state
	service     cwlogs.LogService
	state       destination.State
	initialized bool

	delivered     atomic.Uint64
	duplicates    atomic.Uint64
	failedBatches atomic.Uint64
	fallback      atomic.Uint64
}

func NewEngine(opts Options, logger *log.Logger) *Engine {
	if opts.RetryCount < 1 {
		opts.RetryCount = 1
	}
	return &Engine{opts: opts, logger: logger}
}

// Deliver ships one batch. It never returns an error or panics past its
// boundary; undeliverable records go to the fallback sink.
func (e *Engine) Deliver(ctx context.Context, batch []core.LogRecord) {
	if len(batch) == 0 {
		return
	}

	err := guard.Run(ctx, func(ctx context.Context) error {
		e.deliver(ctx, batch)
		return nil
	})
	if err != nil {
		e.logger.Error("msg", "Delivery aborted",
			"component", "delivery_engine",
			"records", len(batch),
			"error", err)
		e.toFallback(batch)
	}
}

func (e *Engine) deliver(ctx context.Context, batch []core.LogRecord) {
	if !e.initialized {
		e.initialize(ctx)
	}

	if e.service == nil {
		e.toFallback(batch)
		return
	}

	events, err := e.render(batch)
	if err == nil {
		err = e.put(ctx, events)
	}
	if err == nil {
		return
	}

	if errors.Is(err, errDuplicate) {
		return
	}

	e.failedBatches.Add(1)
	e.opts.Metrics.FailedBatch()
	e.logger.Error("msg", "Failed to deliver batch",
		"component", "delivery_engine",
		"log_group", e.state.Group,
		"log_stream", e.state.Stream,
		"records", len(batch),
		"error", err)

	failed := make([]core.LogRecord, 0, len(batch)+1)
	failed = append(failed, batch...)
	failed = append(failed, diagnosticRecord(ctx, len(batch), err))
	e.toFallback(failed)
}

// initialize runs once, even when it fails
func (e *Engine) initialize(ctx context.Context) {
	e.initialized = true

	e.service = e.opts.Service
	if e.service == nil && e.opts.Factory != nil {
		svc, err := e.opts.Factory()
		if err != nil {
			e.logger.Error("msg", "Failed to create log service client",
				"component", "delivery_engine",
				"error", err)
			return
		}
		e.service = svc
	}
	if e.service == nil {
		e.logger.Error("msg", "No log service available, records go to the fallback sink",
			"component", "delivery_engine")
		return
	}

	if e.opts.Resolver != nil {
		e.state = e.opts.Resolver.Resolve(ctx, e.service)
	}
}

var errDuplicate = errors.New("batch already accepted")

// put runs the token protocol. It returns nil on delivery, errDuplicate when
// the service already holds the batch, or the cause of failure.
func (e *Engine) put(ctx context.Context, events []cwlogs.InputEvent) error {
	var lastErr error
	for attempt := 1; attempt <= e.opts.RetryCount; attempt++ {
		start := time.Now()
		next, err := e.service.PutBatch(ctx, e.state.Group, e.state.Stream, e.state.Token, events)
		res := classify(next, err)
		e.opts.Metrics.PutAttempt(res.metricLabel(), time.Since(start))

		switch res.kind {
		case outcomeDelivered:
			e.state.Token = res.token
			e.delivered.Add(uint64(len(events)))
			e.opts.Metrics.Delivered(len(events))
			return nil

		case outcomeRetryWithToken:
			e.state.Token = res.token
			lastErr = res.err
			e.logger.Debug("msg", "Stale sequence token, retrying with expected token",
				"component", "delivery_engine",
				"attempt", attempt,
				"log_stream", e.state.Stream)

		case outcomeDuplicateAccepted:
			e.state.Token = res.token
			e.duplicates.Add(1)
			e.opts.Metrics.Duplicate()
			e.logger.Warn("msg", "Batch was already accepted by the service",
				"component", "delivery_engine",
				"records", len(events),
				"log_stream", e.state.Stream)
			return errDuplicate

		default:
			return res.err
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", e.opts.RetryCount, lastErr)
}

// render formats the batch and orders it by timestamp. Records without a
// timestamp come first; equal timestamps keep arrival order.
func (e *Engine) render(batch []core.LogRecord) ([]cwlogs.InputEvent, error) {
	events := make([]cwlogs.InputEvent, 0, len(batch))
	for _, rec := range batch {
		text, err := e.opts.Formatter.Format(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to format record: %w", err)
		}
		ev := cwlogs.InputEvent{Message: strings.TrimSuffix(string(text), "\n")}
		if ms, ok := rec.EpochMillis(); ok {
			ev.Timestamp = &ms
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Timestamp, events[j].Timestamp
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return *a < *b
	})
	return events, nil
}

func (e *Engine) toFallback(records []core.LogRecord) {
	var fb sink.Fallback
	if e.opts.Fallback != nil {
		fb = e.opts.Fallback()
	}
	if fb == nil {
		e.logger.Warn("msg", "No fallback sink attached, records lost",
			"component", "delivery_engine",
			"records", len(records))
		return
	}
	for _, rec := range records {
		fb.Accept(rec)
	}
	e.fallback.Add(uint64(len(records)))
	e.opts.Metrics.Fallback(len(records))
}

// diagnosticRecord describes a failed delivery. It is produced inside the
// guarded context so it can never loop back into the queue.
func diagnosticRecord(ctx context.Context, n int, cause error) core.LogRecord {
	return core.LogRecord{
		Time:     time.Now(),
		Level:    core.LevelError,
		Logger:   core.InternalLogger,
		Message:  fmt.Sprintf("failed to deliver %d log records: %v", n, cause),
		Producer: core.ProducerFrom(ctx),
	}
}

// State returns the current destination state. Writer goroutine only.
func (e *Engine) State() destination.State {
	return e.state
}

// Close releases the service handle. Writer goroutine only, after the
// final delivery. A preset service is closed even if no batch was ever
// delivered; a factory is never invoked just to be closed.
func (e *Engine) Close() error {
	svc := e.service
	if svc == nil {
		svc = e.opts.Service
	}
	if svc == nil {
		return nil
	}
	return svc.Close()
}

func (e *Engine) Stats() Stats {
	return Stats{
		Delivered:     e.delivered.Load(),
		Duplicates:    e.duplicates.Load(),
		FailedBatches: e.failedBatches.Load(),
		Fallback:      e.fallback.Load(),
	}
}
