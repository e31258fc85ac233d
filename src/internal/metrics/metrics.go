// FILE: logship/src/internal/metrics/metrics.go
// Package metrics holds the Prometheus collectors of the delivery pipeline.
// A nil *Collector is valid and turns every observation into a no-op.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Put attempt outcomes used as label values
const (
	OutcomeDelivered = "delivered"
	OutcomeStale     = "stale_token"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Collector owns the pipeline metrics registered on one registry
type Collector struct {
	accepted      prometheus.Counter
	dropped       *prometheus.CounterVec
	fallback      prometheus.Counter
	delivered     prometheus.Counter
	duplicates    prometheus.Counter
	failedBatches prometheus.Counter
	putAttempts   *prometheus.CounterVec
	batchSize     prometheus.Histogram
	putLatency    prometheus.Histogram
}

// New creates the collectors and registers them on reg. constLabels are
// attached to every series, typically the log group.
func New(reg prometheus.Registerer, constLabels prometheus.Labels) (*Collector, error) {
	c := &Collector{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "logship_records_accepted_total",
			Help:        "Records enqueued for delivery",
			ConstLabels: constLabels,
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "logship_records_dropped_total",
			Help:        "Records lost without reaching the queue or a fallback sink",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		fallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "logship_records_fallback_total",
			Help:        "Records handed to the fallback sink",
			ConstLabels: constLabels,
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "logship_records_delivered_total",
			Help:        "Records accepted by the remote service",
			ConstLabels: constLabels,
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "logship_batches_duplicate_total",
			Help:        "Batches the remote service reported as already accepted",
			ConstLabels: constLabels,
		}),
		failedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "logship_batches_failed_total",
			Help:        "Batches routed to the fallback sink after delivery failed",
			ConstLabels: constLabels,
		}),
		putAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "logship_put_attempts_total",
			Help:        "Put calls by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "logship_batch_records",
			Help:        "Distribution of records per delivered batch",
			Buckets:     []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
			ConstLabels: constLabels,
		}),
		putLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "logship_put_duration_seconds",
			Help:        "Latency of put calls",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}),
	}

	for _, col := range []prometheus.Collector{
		c.accepted, c.dropped, c.fallback, c.delivered, c.duplicates,
		c.failedBatches, c.putAttempts, c.batchSize, c.putLatency,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return c, nil
}

// RegisterQueueLength exposes the current queue depth through fn
func (c *Collector) RegisterQueueLength(reg prometheus.Registerer, constLabels prometheus.Labels, fn func() float64) error {
	if c == nil {
		return nil
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "logship_queue_length",
		Help:        "Records waiting in the ingest queue",
		ConstLabels: constLabels,
	}, fn)
	return reg.Register(gauge)
}

func (c *Collector) Accepted() {
	if c == nil {
		return
	}
	c.accepted.Inc()
}

// Dropped counts a lost record, reason is "guard", "stopped" or "queue_full"
func (c *Collector) Dropped(reason string) {
	if c == nil {
		return
	}
	c.dropped.WithLabelValues(reason).Inc()
}

func (c *Collector) Fallback(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.fallback.Add(float64(n))
}

func (c *Collector) Delivered(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.delivered.Add(float64(n))
	c.batchSize.Observe(float64(n))
}

func (c *Collector) Duplicate() {
	if c == nil {
		return
	}
	c.duplicates.Inc()
}

func (c *Collector) FailedBatch() {
	if c == nil {
		return
	}
	c.failedBatches.Inc()
}

func (c *Collector) PutAttempt(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.putAttempts.WithLabelValues(outcome).Inc()
	c.putLatency.Observe(elapsed.Seconds())
}
