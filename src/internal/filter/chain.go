// FILE: logship/src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Chain runs records through filters in order; a record must pass all of them
type Chain struct {
	filters []*Filter
	logger  *log.Logger

	processed atomic.Uint64
	passed    atomic.Uint64
}

func NewChain(configs []config.FilterConfig, logger *log.Logger) (*Chain, error) {
	filters := make([]*Filter, 0, len(configs))
	for i, cfg := range configs {
		f, err := NewFilter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		filters = append(filters, f)
	}

	logger.Info("msg", "Filter chain created",
		"component", "filter_chain",
		"filter_count", len(filters))
	return &Chain{filters: filters, logger: logger}, nil
}

// Apply stops at the first filter rejecting rec
func (c *Chain) Apply(rec core.LogRecord) bool {
	c.processed.Add(1)

	for i, f := range c.filters {
		if !f.Apply(rec) {
			c.logger.Debug("msg", "Record filtered out",
				"component", "filter_chain",
				"filter_index", i,
				"filter_type", f.kind)
			return false
		}
	}

	c.passed.Add(1)
	return true
}

// Len returns the number of filters
func (c *Chain) Len() int {
	return len(c.filters)
}

func (c *Chain) GetStats() map[string]any {
	perFilter := make([]map[string]any, len(c.filters))
	for i, f := range c.filters {
		perFilter[i] = f.GetStats()
	}

	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": c.processed.Load(),
		"total_passed":    c.passed.Load(),
		"filters":         perFilter,
	}
}
