// FILE: logship/src/internal/appender/appender_test.go
package appender

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"
	"logship/src/internal/format"
	"logship/src/internal/guard"
	"logship/src/internal/sink"
	"logship/src/internal/testutil"

	"github.com/lixenwraith/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.AppenderConfig {
	cfg := config.DefaultAppenderConfig()
	cfg.LogGroup = "app"
	cfg.LogStream = "web"
	cfg.Region = "us-east-1"
	cfg.MaxBatchTimeMS = 20
	cfg.MaxQueueWaitTimeMS = 0
	cfg.ShutdownTimeoutMS = 5000
	cfg.Identity.Enabled = false
	cfg.Format = &config.FormatConfig{Type: "raw"}
	return cfg
}

func rec(msg string) core.LogRecord {
	return core.LogRecord{Time: time.Now(), Level: core.LevelInfo, Message: msg}
}

func deliveredMessages(svc *testutil.MockLogService) []string {
	var out []string
	for _, p := range svc.GetPuts() {
		for _, e := range p.Events {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, log.NewLogger())
	assert.Error(t, err)

	_, err = New(testConfig(), nil)
	assert.Error(t, err)
}

func TestAppender_EndToEnd(t *testing.T) {
	svc := testutil.NewMockLogService()
	fb := &testutil.MockFallback{}

	app, err := New(testConfig(), log.NewLogger(), WithService(svc), WithFallback(fb))
	require.NoError(t, err)
	require.NoError(t, app.Start())
	assert.True(t, app.Running())
	assert.Equal(t, 1, fb.GetStartCalls())

	app.Accept(context.Background(), rec("a"))
	app.Accept(context.Background(), rec("b"))
	app.Accept(context.Background(), rec("c"))

	app.Stop()
	assert.False(t, app.Running())

	assert.Equal(t, []string{"a", "b", "c"}, deliveredMessages(svc))
	assert.Equal(t, []string{"app"}, svc.CreatedGroups)
	assert.Equal(t, 1, svc.GetCloseCalls())
	assert.Equal(t, 1, fb.GetStopCalls())
	assert.Empty(t, fb.GetRecords())

	stats := app.Stats()
	assert.Equal(t, uint64(3), stats.Accepted)
	assert.Equal(t, uint64(3), stats.Delivered)
	assert.Zero(t, stats.Dropped)
	assert.Zero(t, stats.Fallback)
}

func TestAppender_ProducerTagging(t *testing.T) {
	svc := testutil.NewMockLogService()
	cfg := testConfig()
	cfg.Format = &config.FormatConfig{Type: "json"}

	app, err := New(cfg, log.NewLogger(), WithService(svc))
	require.NoError(t, err)
	require.NoError(t, app.Start())

	app.Accept(core.WithProducer(context.Background(), "worker-1"), rec("tagged"))
	explicit := rec("explicit")
	explicit.Producer = "cron"
	app.Accept(core.WithProducer(context.Background(), "worker-1"), explicit)
	app.Stop()

	msgs := deliveredMessages(svc)
	require.Len(t, msgs, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(msgs[1]), &second))
	assert.Equal(t, "worker-1", first["producer"])
	assert.Equal(t, "cron", second["producer"])
}

func TestAppender_FullQueueRoutesToFallbackOnce(t *testing.T) {
	svc := testutil.NewMockLogService()
	fb := &testutil.MockFallback{}
	cfg := testConfig()
	cfg.InternalQueueSize = 1
	cfg.InitialWaitTimeMS = 60000

	app, err := New(cfg, log.NewLogger(), WithService(svc), WithFallback(fb))
	require.NoError(t, err)
	require.NoError(t, app.Start())

	app.Accept(context.Background(), rec("a"))
	app.Accept(context.Background(), rec("b"))
	app.Accept(context.Background(), rec("c"))

	records := fb.GetRecords()
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Message)
	assert.Equal(t, "c", records[1].Message)

	stats := app.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(2), stats.Fallback)
	assert.Equal(t, 1, stats.QueueLength)

	// Stop interrupts the initial wait and still drains
	app.Stop()
	assert.Equal(t, []string{"a"}, deliveredMessages(svc))
	assert.Len(t, fb.GetRecords(), 2)
}

func TestAppender_StatsIncludeFallbackSink(t *testing.T) {
	logger := log.NewLogger()
	raw, err := format.NewRawFormatter(logger)
	require.NoError(t, err)
	var out bytes.Buffer
	console, err := sink.NewConsoleSink("stderr", &out, raw, logger)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.InternalQueueSize = 1
	cfg.InitialWaitTimeMS = 60000

	app, err := New(cfg, logger, WithService(testutil.NewMockLogService()), WithFallback(console))
	require.NoError(t, err)
	assert.Zero(t, app.Stats().FallbackWritten)
	require.NoError(t, app.Start())

	app.Accept(context.Background(), rec("kept"))
	app.Accept(context.Background(), rec("spill-1"))
	app.Accept(context.Background(), rec("spill-2"))

	// Stopping the sink flushes its buffer
	app.Stop()

	stats := app.Stats()
	assert.Equal(t, uint64(2), stats.FallbackWritten)
	assert.Zero(t, stats.FallbackDropped)
	assert.Equal(t, "spill-1\nspill-2\n", out.String())

	app.DetachFallback()
	assert.Zero(t, app.Stats().FallbackWritten)
}

func TestAppender_FullQueueWithoutFallbackDrops(t *testing.T) {
	cfg := testConfig()
	cfg.InternalQueueSize = 1
	cfg.InitialWaitTimeMS = 60000

	app, err := New(cfg, log.NewLogger(), WithService(testutil.NewMockLogService()))
	require.NoError(t, err)
	require.NoError(t, app.Start())
	defer app.Stop()

	app.Accept(context.Background(), rec("a"))
	app.Accept(context.Background(), rec("b"))

	stats := app.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestAppender_GuardedRecordsDiscarded(t *testing.T) {
	svc := testutil.NewMockLogService()
	fb := &testutil.MockFallback{}

	app, err := New(testConfig(), log.NewLogger(), WithService(svc), WithFallback(fb))
	require.NoError(t, err)
	require.NoError(t, app.Start())

	app.Accept(guard.Enter(context.Background()), rec("internal"))
	app.Stop()

	assert.Empty(t, svc.GetPuts())
	assert.Empty(t, fb.GetRecords())
	stats := app.Stats()
	assert.Zero(t, stats.Accepted)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestAppender_Lifecycle(t *testing.T) {
	t.Run("AcceptBeforeStartIgnored", func(t *testing.T) {
		svc := testutil.NewMockLogService()
		app, err := New(testConfig(), log.NewLogger(), WithService(svc))
		require.NoError(t, err)

		app.Accept(context.Background(), rec("early"))
		app.Accept(context.Background(), rec("early"))

		stats := app.Stats()
		assert.Zero(t, stats.Accepted)
		assert.Zero(t, stats.Dropped)
		assert.Empty(t, svc.GetPuts())
	})

	t.Run("AcceptAfterStopDropped", func(t *testing.T) {
		svc := testutil.NewMockLogService()
		app, err := New(testConfig(), log.NewLogger(), WithService(svc))
		require.NoError(t, err)
		require.NoError(t, app.Start())
		app.Stop()

		app.Accept(context.Background(), rec("late"))
		assert.Equal(t, uint64(1), app.Stats().Dropped)
		assert.Empty(t, svc.GetPuts())
	})

	t.Run("StartAndStopIdempotent", func(t *testing.T) {
		svc := testutil.NewMockLogService()
		fb := &testutil.MockFallback{}
		app, err := New(testConfig(), log.NewLogger(), WithService(svc), WithFallback(fb))
		require.NoError(t, err)

		app.Stop()
		require.NoError(t, app.Start())
		require.NoError(t, app.Start())
		assert.Equal(t, 1, fb.GetStartCalls())

		app.Stop()
		app.Stop()
		assert.Equal(t, 1, fb.GetStopCalls())
		assert.Equal(t, 1, svc.GetCloseCalls())

		assert.Error(t, app.Start())
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := testConfig()
		cfg.LogGroup = ""
		app, err := New(cfg, log.NewLogger(), WithService(testutil.NewMockLogService()))
		require.NoError(t, err)

		err = app.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log_group")
		assert.False(t, app.Running())
	})
}

func TestAppender_AttachFallback(t *testing.T) {
	app, err := New(testConfig(), log.NewLogger(), WithService(testutil.NewMockLogService()))
	require.NoError(t, err)

	first := &testutil.MockFallback{SinkName: "first"}
	second := &testutil.MockFallback{SinkName: "second"}

	require.NoError(t, app.AttachFallback(first))
	assert.ErrorIs(t, app.AttachFallback(second), ErrFallbackAttached)
	assert.Error(t, app.AttachFallback(nil))

	detached := app.DetachFallback()
	assert.Same(t, first, detached)
	assert.Nil(t, app.DetachFallback())

	require.NoError(t, app.Start())
	defer app.Stop()

	// Attaching to a running appender starts the sink
	require.NoError(t, app.AttachFallback(second))
	assert.Equal(t, 1, second.GetStartCalls())
	assert.Zero(t, first.GetStartCalls())
}

func TestAppender_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	app, err := New(testConfig(), log.NewLogger(),
		WithService(testutil.NewMockLogService()),
		WithMetrics(reg))
	require.NoError(t, err)
	require.NoError(t, app.Start())

	app.Accept(context.Background(), rec("a"))
	app.Accept(context.Background(), rec("b"))
	app.Stop()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), values["logship_records_accepted_total"])
	assert.Equal(t, float64(2), values["logship_records_delivered_total"])
}

func TestHandler(t *testing.T) {
	svc := testutil.NewMockLogService()
	cfg := testConfig()
	cfg.Format = &config.FormatConfig{Type: "json"}

	app, err := New(cfg, log.NewLogger(), WithService(svc))
	require.NoError(t, err)
	require.NoError(t, app.Start())

	logger := slog.New(app.Handler(slog.LevelInfo)).With("logger", "api")
	logger.Debug("filtered")
	logger.WithGroup("req").Info("handled", "status", 200)
	logger.Error("failed", "error", assert.AnError)
	app.Stop()

	msgs := deliveredMessages(svc)
	require.Len(t, msgs, 2)

	var handled, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &handled))
	require.NoError(t, json.Unmarshal([]byte(msgs[1]), &failed))

	assert.Equal(t, "handled", handled["message"])
	assert.Equal(t, "api", handled["logger"])
	assert.Equal(t, "INFO", handled["level"])
	assert.Equal(t, float64(200), handled["req.status"])

	assert.Equal(t, "ERROR", failed["level"])
	assert.Equal(t, assert.AnError.Error(), failed["error"])
}

func TestFromSlogLevel(t *testing.T) {
	assert.Equal(t, core.LevelTrace, fromSlogLevel(slog.LevelDebug-4))
	assert.Equal(t, core.LevelDebug, fromSlogLevel(slog.LevelDebug))
	assert.Equal(t, core.LevelInfo, fromSlogLevel(slog.LevelInfo))
	assert.Equal(t, core.LevelWarn, fromSlogLevel(slog.LevelWarn+1))
	assert.Equal(t, core.LevelError, fromSlogLevel(slog.LevelError))
}
