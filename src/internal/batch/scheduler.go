// FILE: logship/src/internal/batch/scheduler.go
package batch

import (
	"context"
	"sync"
	"time"

	"logship/src/internal/core"
	"logship/src/internal/queue"

	"github.com/lixenwraith/log"
)

// Deliverer receives completed batches. It must not retain the slice.
type Deliverer interface {
	Deliver(ctx context.Context, batch []core.LogRecord)
}

// Options bound the size and age of a batch
type Options struct {
	MaxBatchSize     int
	MaxBatchInterval time.Duration
	InitialDelay     time.Duration
}

// Scheduler is the single writer goroutine draining the queue into batches
type Scheduler struct {
	queue     *queue.Queue
	deliverer Deliverer
	opts      Options
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	started   bool
	mu        sync.Mutex
}

func NewScheduler(q *queue.Queue, d Deliverer, opts Options, logger *log.Logger) *Scheduler {
	if opts.MaxBatchSize < 1 {
		opts.MaxBatchSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		queue:     q,
		deliverer: d,
		opts:      opts,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the worker. Later calls do nothing.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run()
	})
}

// Stop signals the worker to flush and drain, then waits up to timeout for
// it to exit. It returns false when the worker is still running.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.cancel()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return true
	}

	if timeout <= 0 {
		<-s.done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done is closed when the worker has exited
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	// Deliveries outlive the stop signal so the final flush is not aborted
	deliverCtx := context.WithoutCancel(s.ctx)

	if s.opts.InitialDelay > 0 {
		timer := time.NewTimer(s.opts.InitialDelay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
		}
	}

	for s.ctx.Err() == nil {
		if batch := s.collect(); len(batch) > 0 {
			s.deliver(deliverCtx, batch)
		}
	}

	s.drain(deliverCtx)
}

// collect fills one batch until it is full, the interval elapses, or stop
// is signalled
func (s *Scheduler) collect() []core.LogRecord {
	deadline := time.Now().Add(s.opts.MaxBatchInterval)
	var batch []core.LogRecord

	for len(batch) < s.opts.MaxBatchSize {
		rec, ok := s.queue.Poll(s.ctx, time.Until(deadline))
		if !ok {
			break
		}
		batch = append(batch, rec)
	}
	return batch
}

// drain empties the queue without waiting
func (s *Scheduler) drain(ctx context.Context) {
	drained := 0
	batch := make([]core.LogRecord, 0, s.opts.MaxBatchSize)
	for {
		rec, ok := s.queue.TryPoll()
		if !ok {
			break
		}
		batch = append(batch, rec)
		drained++
		if len(batch) == s.opts.MaxBatchSize {
			s.deliver(ctx, batch)
			batch = make([]core.LogRecord, 0, s.opts.MaxBatchSize)
		}
	}
	if len(batch) > 0 {
		s.deliver(ctx, batch)
	}

	s.logger.Debug("msg", "Queue drained",
		"component", "batch_scheduler",
		"records", drained)
}

func (s *Scheduler) deliver(ctx context.Context, batch []core.LogRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("msg", "Panic during delivery, batch lost",
				"component", "batch_scheduler",
				"records", len(batch),
				"panic", r)
		}
	}()
	s.deliverer.Deliver(ctx, batch)
}
