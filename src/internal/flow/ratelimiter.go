// FILE: logship/src/internal/flow/ratelimiter.go
package flow

import (
	"math"
	"strings"
	"sync/atomic"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// RateLimiter bounds the rate at which agent inputs feed the appender
type RateLimiter struct {
	limiter *rate.Limiter
	policy  config.RateLimitPolicy
	logger  *log.Logger

	maxEntrySizeBytes int64

	// Statistics
	droppedBySizeCount atomic.Uint64
	droppedCount       atomic.Uint64
	overLimitCount     atomic.Uint64
}

// NewRateLimiter creates a limiter from configuration. It returns nil when
// no rate is configured; a nil *RateLimiter allows everything.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *log.Logger) *RateLimiter {
	if cfg == nil || (cfg.Rate <= 0 && cfg.MaxEntrySizeBytes <= 0) {
		return nil
	}

	l := &RateLimiter{
		policy:            ParsePolicy(cfg.Policy),
		logger:            logger,
		maxEntrySizeBytes: cfg.MaxEntrySizeBytes,
	}

	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Rate
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), int(math.Max(1, math.Ceil(burst))))
	}

	logger.Info("msg", "Input rate limiter created",
		"component", "rate_limiter",
		"rate", cfg.Rate,
		"burst", cfg.Burst,
		"policy", policyString(l.policy),
		"max_entry_size_bytes", cfg.MaxEntrySizeBytes)

	return l
}

// ParsePolicy maps a configured policy name, unknown names mean pass
func ParsePolicy(s string) config.RateLimitPolicy {
	if strings.ToLower(s) == "drop" {
		return config.PolicyDrop
	}
	return config.PolicyPass
}

// Allow reports whether rec may continue. Oversized records are always
// dropped; records over the rate are dropped only under the drop policy.
func (l *RateLimiter) Allow(rec core.LogRecord) bool {
	if l == nil {
		return true
	}

	if l.maxEntrySizeBytes > 0 && int64(len(rec.Message)) > l.maxEntrySizeBytes {
		l.droppedBySizeCount.Add(1)
		return false
	}

	if l.limiter == nil || l.limiter.Allow() {
		return true
	}

	l.overLimitCount.Add(1)
	if l.policy == config.PolicyPass {
		return true
	}
	l.droppedCount.Add(1)
	return false
}

// GetStats returns statistics for the rate limiter
func (l *RateLimiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	stats := map[string]any{
		"enabled":               true,
		"dropped_total":         l.droppedCount.Load(),
		"dropped_by_size_total": l.droppedBySizeCount.Load(),
		"over_limit_total":      l.overLimitCount.Load(),
		"policy":                policyString(l.policy),
		"max_entry_size_bytes":  l.maxEntrySizeBytes,
	}
	if l.limiter != nil {
		stats["tokens"] = l.limiter.Tokens()
	}
	return stats
}

func policyString(p config.RateLimitPolicy) string {
	switch p {
	case config.PolicyDrop:
		return "drop"
	case config.PolicyPass:
		return "pass"
	default:
		return "unknown"
	}
}
