// FILE: logship/src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Filter keeps or discards records by level threshold and regex patterns
type Filter struct {
	kind        config.FilterType
	logic       config.FilterLogic
	patterns    []*regexp.Regexp
	minSeverity int
	logger      *log.Logger

	processed    atomic.Uint64
	matched      atomic.Uint64
	droppedLevel atomic.Uint64
	dropped      atomic.Uint64
}

// NewFilter compiles a filter. An empty type means include, an empty
// logic means or.
func NewFilter(cfg config.FilterConfig, logger *log.Logger) (*Filter, error) {
	f := &Filter{
		kind:     cfg.Type,
		logic:    cfg.Logic,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		logger:   logger,
	}
	if f.kind == "" {
		f.kind = config.FilterTypeInclude
	}
	if f.logic == "" {
		f.logic = config.FilterLogicOr
	}

	if cfg.MinLevel != "" {
		level := core.ParseLevel(cfg.MinLevel)
		if level == "" {
			return nil, fmt.Errorf("unknown min_level '%s'", cfg.MinLevel)
		}
		f.minSeverity = level.Severity()
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	logger.Debug("msg", "Filter created",
		"component", "filter",
		"type", f.kind,
		"logic", f.logic,
		"min_level", cfg.MinLevel,
		"pattern_count", len(f.patterns))

	return f, nil
}

// Apply reports whether rec passes. Patterns are matched against the
// logger name, level and message joined by single spaces.
func (f *Filter) Apply(rec core.LogRecord) bool {
	f.processed.Add(1)

	if f.minSeverity > 0 {
		if sev := rec.Level.Severity(); sev > 0 && sev < f.minSeverity {
			f.droppedLevel.Add(1)
			return false
		}
	}

	if len(f.patterns) == 0 {
		return true
	}

	hit := f.matches(matchText(rec))
	if hit {
		f.matched.Add(1)
	}

	pass := hit
	if f.kind == config.FilterTypeExclude {
		pass = !hit
	}
	if !pass {
		f.dropped.Add(1)
	}
	return pass
}

func (f *Filter) matches(text string) bool {
	if f.logic == config.FilterLogicAnd {
		for _, re := range f.patterns {
			if !re.MatchString(text) {
				return false
			}
		}
		return true
	}

	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func matchText(rec core.LogRecord) string {
	var b strings.Builder
	if rec.Logger != "" {
		b.WriteString(rec.Logger)
		b.WriteByte(' ')
	}
	if rec.Level != "" {
		b.WriteString(string(rec.Level))
		b.WriteByte(' ')
	}
	b.WriteString(rec.Message)
	return b.String()
}

// GetStats returns filter counters
func (f *Filter) GetStats() map[string]any {
	return map[string]any{
		"type":                f.kind,
		"logic":               f.logic,
		"pattern_count":       len(f.patterns),
		"total_processed":     f.processed.Load(),
		"total_matched":       f.matched.Load(),
		"total_dropped":       f.dropped.Load(),
		"total_dropped_level": f.droppedLevel.Load(),
	}
}
