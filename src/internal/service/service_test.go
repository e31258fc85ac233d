// FILE: logship/src/internal/service/service_test.go
package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"
	"logship/src/internal/filter"
	"logship/src/internal/flow"
	"logship/src/internal/source"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	records   []core.LogRecord
	producers []string
}

func (r *recorder) Accept(ctx context.Context, rec core.LogRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	r.producers = append(r.producers, core.ProducerFrom(ctx))
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Message
	}
	return out
}

func stdinService(t *testing.T, input string, chain *filter.Chain, limiter *flow.RateLimiter, out Recorder) *Service {
	t.Helper()
	logger := log.NewLogger()
	src := source.NewStdinSource(config.InputConfig{Type: "stdin"}, strings.NewReader(input), logger)
	svc, err := newService(context.Background(), []source.Source{src}, chain, limiter, out, logger)
	require.NoError(t, err)
	return svc
}

func waitDone(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case <-svc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("service did not finish")
	}
}

func TestNew(t *testing.T) {
	logger := log.NewLogger()

	t.Run("NilConfig", func(t *testing.T) {
		_, err := New(context.Background(), nil, &recorder{}, logger)
		assert.Error(t, err)
	})

	t.Run("NilRecorder", func(t *testing.T) {
		cfg := &config.Config{Inputs: []config.InputConfig{{Type: "stdin"}}}
		_, err := New(context.Background(), cfg, nil, logger)
		assert.Error(t, err)
	})

	t.Run("NoInputs", func(t *testing.T) {
		_, err := New(context.Background(), &config.Config{}, &recorder{}, logger)
		assert.Error(t, err)
	})

	t.Run("BadInput", func(t *testing.T) {
		cfg := &config.Config{Inputs: []config.InputConfig{{Type: "socket"}}}
		_, err := New(context.Background(), cfg, &recorder{}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input[0]")
	})

	t.Run("BadFilter", func(t *testing.T) {
		cfg := &config.Config{
			Inputs:  []config.InputConfig{{Type: "stdin"}},
			Filters: []config.FilterConfig{{Patterns: []string{"("}}},
		}
		_, err := New(context.Background(), cfg, &recorder{}, logger)
		assert.Error(t, err)
	})
}

func TestService_ForwardsToRecorder(t *testing.T) {
	out := &recorder{}
	svc := stdinService(t, "one\ntwo\nthree\n", nil, nil, out)

	require.NoError(t, svc.Start())
	waitDone(t, svc)
	svc.Shutdown()

	assert.Equal(t, []string{"one", "two", "three"}, out.messages())
	assert.Equal(t, "input:stdin", out.producers[0])

	stats := svc.GetStats()
	assert.Equal(t, uint64(3), stats["total_processed"])
	assert.Equal(t, uint64(3), stats["total_forwarded"])
}

func TestService_FilterAndRateLimit(t *testing.T) {
	logger := log.NewLogger()
	chain, err := filter.NewChain([]config.FilterConfig{
		{Type: config.FilterTypeExclude, Patterns: []string{"healthcheck"}},
	}, logger)
	require.NoError(t, err)
	limiter := flow.NewRateLimiter(&config.RateLimitConfig{Rate: 0.001, Burst: 2, Policy: "drop"}, logger)

	out := &recorder{}
	svc := stdinService(t, "a\nGET /healthcheck\nb\nc\n", chain, limiter, out)

	require.NoError(t, svc.Start())
	waitDone(t, svc)
	svc.Shutdown()

	assert.Equal(t, []string{"a", "b"}, out.messages())

	stats := svc.GetStats()
	assert.Equal(t, uint64(4), stats["total_processed"])
	assert.Equal(t, uint64(1), stats["total_filtered"])
	assert.Equal(t, uint64(1), stats["total_dropped_rate_limit"])
}

func TestService_ShutdownIdempotent(t *testing.T) {
	svc := stdinService(t, "", nil, nil, &recorder{})
	require.NoError(t, svc.Start())
	svc.Shutdown()
	svc.Shutdown()
}
