// FILE: logship/src/internal/sink/sink.go
package sink

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"
	"logship/src/internal/format"

	"github.com/lixenwraith/log"
)

const defaultBufferSize = 1024

// Fallback is the emergency output for records the pipeline could not
// deliver or enqueue. Accept must never block the caller.
type Fallback interface {
	Accept(rec core.LogRecord)
	Start() error
	Stop()
	Started() bool
	Name() string
	GetStats() Stats
}

// Stats counts what a sink wrote and what it had to drop
type Stats struct {
	Type           string
	TotalProcessed uint64
	TotalDropped   uint64
	StartTime      time.Time
	LastProcessed  time.Time
}

// New creates the fallback sink selected by opts. It returns nil, nil for
// type "none".
func New(opts *config.FallbackOptions, logger *log.Logger) (Fallback, error) {
	if opts == nil {
		opts = config.DefaultAppenderConfig().Fallback
	}

	formatter, err := format.NewFormatter(opts.Format, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback formatter: %w", err)
	}

	switch opts.Type {
	case "none":
		return nil, nil
	case "stderr", "":
		return NewConsoleSink("stderr", nil, formatter, logger)
	case "stdout":
		return NewConsoleSink("stdout", nil, formatter, logger)
	case "file":
		return NewFileSink(opts, formatter, logger)
	default:
		return nil, fmt.Errorf("unknown fallback type: %s", opts.Type)
	}
}

// base runs the buffered write loop shared by the sinks
type base struct {
	name      string
	input     chan core.LogRecord
	done      chan struct{}
	wg        sync.WaitGroup
	formatter format.Formatter
	logger    *log.Logger
	write     func(formatted []byte)

	started   atomic.Bool
	stopped   atomic.Bool
	stopOnce  sync.Once
	startTime time.Time

	// Statistics
	totalProcessed atomic.Uint64
	totalDropped   atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

func newBase(name string, formatter format.Formatter, logger *log.Logger, write func([]byte)) *base {
	b := &base{
		name:      name,
		input:     make(chan core.LogRecord, defaultBufferSize),
		done:      make(chan struct{}),
		formatter: formatter,
		logger:    logger,
		write:     write,
	}
	b.lastProcessed.Store(time.Time{})
	return b
}

// Accept queues rec for writing. Records arriving while the sink is not
// running, or while its buffer is full, are counted and dropped.
func (b *base) Accept(rec core.LogRecord) {
	if !b.started.Load() {
		b.totalDropped.Add(1)
		return
	}
	select {
	case b.input <- rec:
	default:
		b.totalDropped.Add(1)
	}
}

// start launches the loop once; a stopped sink cannot be restarted
func (b *base) start() {
	if b.stopped.Load() || !b.started.CompareAndSwap(false, true) {
		return
	}
	b.startTime = time.Now()
	b.wg.Add(1)
	go b.processLoop()
	b.logger.Info("msg", "Fallback sink started",
		"component", b.name+"_sink")
}

// stop ends the loop after writing whatever is already buffered
func (b *base) stop() bool {
	stopped := false
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		if !b.started.Load() {
			return
		}
		close(b.done)
		b.wg.Wait()
		b.started.Store(false)
		stopped = true
	})
	return stopped
}

func (b *base) Started() bool {
	return b.started.Load()
}

func (b *base) Name() string {
	return b.name
}

func (b *base) GetStats() Stats {
	lastProc, _ := b.lastProcessed.Load().(time.Time)
	return Stats{
		Type:           b.name,
		TotalProcessed: b.totalProcessed.Load(),
		TotalDropped:   b.totalDropped.Load(),
		StartTime:      b.startTime,
		LastProcessed:  lastProc,
	}
}

func (b *base) processLoop() {
	defer b.wg.Done()
	for {
		select {
		case rec := <-b.input:
			b.handle(rec)
		case <-b.done:
			for {
				select {
				case rec := <-b.input:
					b.handle(rec)
				default:
					return
				}
			}
		}
	}
}

func (b *base) handle(rec core.LogRecord) {
	formatted, err := b.formatter.Format(rec)
	if err != nil {
		b.logger.Error("msg", "Failed to format fallback record",
			"component", b.name+"_sink",
			"error", err)
		return
	}
	b.write(formatted)
	b.totalProcessed.Add(1)
	b.lastProcessed.Store(time.Now())
}
