// FILE: logship/src/cmd/logship/status.go
package main

import (
	"context"
	"time"

	"logship/src/internal/appender"
	"logship/src/internal/service"
)

// statusReporter periodically logs pipeline counters
func statusReporter(ctx context.Context, interval time.Duration, app *appender.Appender, svc *service.Service) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()
				logStatus(app, svc)
			}()
		}
	}
}

func logStatus(app *appender.Appender, svc *service.Service) {
	stats := app.Stats()
	fields := []any{
		"msg", "Status report",
		"component", "status_reporter",
		"accepted", stats.Accepted,
		"delivered", stats.Delivered,
		"fallback", stats.Fallback,
		"dropped", stats.Dropped,
		"duplicates", stats.Duplicates,
		"failed_batches", stats.FailedBatches,
		"queue_length", stats.QueueLength,
		"fallback_written", stats.FallbackWritten,
	}

	if stats.FallbackDropped > 0 {
		fields = append(fields, "fallback_dropped", stats.FallbackDropped)
	}

	inputStats := svc.GetStats()
	if processed, ok := inputStats["total_processed"].(uint64); ok {
		fields = append(fields, "input_processed", processed)
	}
	if filtered, ok := inputStats["total_filtered"].(uint64); ok && filtered > 0 {
		fields = append(fields, "input_filtered", filtered)
	}
	if limited, ok := inputStats["total_dropped_rate_limit"].(uint64); ok && limited > 0 {
		fields = append(fields, "input_rate_limited", limited)
	}

	if stats.FailedBatches > 0 || stats.Dropped > 0 || stats.FallbackDropped > 0 {
		logger.Warn(fields...)
		return
	}
	logger.Info(fields...)
}
