// FILE: logship/src/internal/service/service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"
	"logship/src/internal/filter"
	"logship/src/internal/flow"
	"logship/src/internal/source"

	"github.com/lixenwraith/log"
)

// Recorder receives the records that survive the input chain
type Recorder interface {
	Accept(ctx context.Context, rec core.LogRecord)
}

// Service wires agent inputs through the filter chain and rate limiter
// into a Recorder
type Service struct {
	sources     []source.Source
	filterChain *filter.Chain
	rateLimiter *flow.RateLimiter
	out         Recorder
	stats       Stats
	logger      *log.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// Stats holds input chain counters
type Stats struct {
	StartTime                      time.Time
	TotalEntriesProcessed          atomic.Uint64
	TotalEntriesFiltered           atomic.Uint64
	TotalEntriesDroppedByRateLimit atomic.Uint64
	TotalEntriesForwarded          atomic.Uint64
}

// New builds the inputs, filters and rate limiter described by cfg
func New(ctx context.Context, cfg *config.Config, out Recorder, logger *log.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	sources := make([]source.Source, 0, len(cfg.Inputs))
	for i, in := range cfg.Inputs {
		src, err := source.New(in, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create input[%d]: %w", i, err)
		}
		sources = append(sources, src)
	}

	var chain *filter.Chain
	if len(cfg.Filters) > 0 {
		var err error
		chain, err = filter.NewChain(cfg.Filters, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create filter chain: %w", err)
		}
	}

	return newService(ctx, sources, chain, flow.NewRateLimiter(cfg.RateLimit, logger), out, logger)
}

func newService(ctx context.Context, sources []source.Source, chain *filter.Chain, limiter *flow.RateLimiter, out Recorder, logger *log.Logger) (*Service, error) {
	if out == nil {
		return nil, fmt.Errorf("recorder cannot be nil")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one input is required")
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	return &Service{
		sources:     sources,
		filterChain: chain,
		rateLimiter: limiter,
		out:         out,
		logger:      logger,
		ctx:         serviceCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}, nil
}

// Start subscribes to every input and starts reading
func (s *Service) Start() error {
	s.stats.StartTime = time.Now()

	for i, src := range s.sources {
		s.wire(src, src.Subscribe())
		if err := src.Start(); err != nil {
			s.Shutdown()
			return fmt.Errorf("failed to start input[%d]: %w", i, err)
		}
	}

	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	s.logger.Info("msg", "Input service started",
		"component", "service",
		"inputs", len(s.sources),
		"filters", s.filterChain != nil,
		"rate_limit", s.rateLimiter != nil)
	return nil
}

// Done is closed once every input is exhausted or the service is shut down
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Shutdown stops all inputs and waits for in-flight records to be handed off
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() {
		s.logger.Info("msg", "Input service shutdown initiated", "component", "service")

		s.cancel()

		var wg sync.WaitGroup
		for _, src := range s.sources {
			wg.Add(1)
			go func(src source.Source) {
				defer wg.Done()
				src.Stop()
			}(src)
		}
		wg.Wait()
		s.wg.Wait()

		s.logger.Info("msg", "Input service shutdown complete",
			"component", "service",
			"processed", s.stats.TotalEntriesProcessed.Load(),
			"forwarded", s.stats.TotalEntriesForwarded.Load())
	})
}

// wire starts the goroutine moving one input's records to the recorder
func (s *Service) wire(src source.Source, records <-chan core.LogRecord) {
	producer := core.WithProducer(s.ctx, "input:"+src.GetStats().Type)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Panic recovery to prevent a single input from crashing the agent
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("msg", "Panic in input processing",
					"component", "service",
					"input", src.GetStats().Type,
					"panic", r)
			}
		}()

		for {
			select {
			case <-s.ctx.Done():
				return
			case rec, ok := <-records:
				if !ok {
					return
				}
				s.process(producer, rec)
			}
		}
	}()
}

func (s *Service) process(ctx context.Context, rec core.LogRecord) {
	s.stats.TotalEntriesProcessed.Add(1)

	if s.filterChain != nil && !s.filterChain.Apply(rec) {
		s.stats.TotalEntriesFiltered.Add(1)
		return
	}

	if !s.rateLimiter.Allow(rec) {
		s.stats.TotalEntriesDroppedByRateLimit.Add(1)
		return
	}

	s.out.Accept(ctx, rec)
	s.stats.TotalEntriesForwarded.Add(1)
}

// GetStats returns input chain statistics
func (s *Service) GetStats() map[string]any {
	sourceStats := make([]map[string]any, 0, len(s.sources))
	for _, src := range s.sources {
		stats := src.GetStats()
		sourceStats = append(sourceStats, map[string]any{
			"type":            stats.Type,
			"total_entries":   stats.TotalEntries,
			"start_time":      stats.StartTime,
			"last_entry_time": stats.LastEntryTime,
			"details":         stats.Details,
		})
	}

	var filterStats map[string]any
	if s.filterChain != nil {
		filterStats = s.filterChain.GetStats()
	}

	return map[string]any{
		"uptime_seconds":           int(time.Since(s.stats.StartTime).Seconds()),
		"total_processed":          s.stats.TotalEntriesProcessed.Load(),
		"total_filtered":           s.stats.TotalEntriesFiltered.Load(),
		"total_dropped_rate_limit": s.stats.TotalEntriesDroppedByRateLimit.Load(),
		"total_forwarded":          s.stats.TotalEntriesForwarded.Load(),
		"sources":                  sourceStats,
		"filters":                  filterStats,
		"rate_limiter":             s.rateLimiter.GetStats(),
	}
}
