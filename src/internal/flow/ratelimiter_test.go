// FILE: logship/src/internal/flow/ratelimiter_test.go
package flow

import (
	"strings"
	"testing"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Disabled(t *testing.T) {
	logger := log.NewLogger()

	assert.Nil(t, NewRateLimiter(nil, logger))
	assert.Nil(t, NewRateLimiter(&config.RateLimitConfig{}, logger))

	var l *RateLimiter
	assert.True(t, l.Allow(core.LogRecord{Message: "x"}))
	assert.Equal(t, false, l.GetStats()["enabled"])
}

func TestRateLimiter_Allow(t *testing.T) {
	logger := log.NewLogger()

	t.Run("DropPolicy", func(t *testing.T) {
		l := NewRateLimiter(&config.RateLimitConfig{Rate: 0.001, Burst: 2, Policy: "drop"}, logger)
		require.NotNil(t, l)

		assert.True(t, l.Allow(core.LogRecord{Message: "a"}))
		assert.True(t, l.Allow(core.LogRecord{Message: "b"}))
		assert.False(t, l.Allow(core.LogRecord{Message: "c"}))

		stats := l.GetStats()
		assert.Equal(t, uint64(1), stats["dropped_total"])
		assert.Equal(t, "drop", stats["policy"])
	})

	t.Run("PassPolicyCountsOnly", func(t *testing.T) {
		l := NewRateLimiter(&config.RateLimitConfig{Rate: 0.001, Burst: 1, Policy: "pass"}, logger)
		require.NotNil(t, l)

		assert.True(t, l.Allow(core.LogRecord{Message: "a"}))
		assert.True(t, l.Allow(core.LogRecord{Message: "b"}))

		stats := l.GetStats()
		assert.Equal(t, uint64(0), stats["dropped_total"])
		assert.Equal(t, uint64(1), stats["over_limit_total"])
	})

	t.Run("OversizedAlwaysDropped", func(t *testing.T) {
		l := NewRateLimiter(&config.RateLimitConfig{MaxEntrySizeBytes: 4}, logger)
		require.NotNil(t, l)

		assert.True(t, l.Allow(core.LogRecord{Message: "four"}))
		assert.False(t, l.Allow(core.LogRecord{Message: strings.Repeat("x", 5)}))
		assert.Equal(t, uint64(1), l.GetStats()["dropped_by_size_total"])
	})
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, config.PolicyDrop, ParsePolicy("DROP"))
	assert.Equal(t, config.PolicyPass, ParsePolicy("pass"))
	assert.Equal(t, config.PolicyPass, ParsePolicy(""))
}
