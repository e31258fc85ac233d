// FILE: logship/src/internal/appender/options.go
package appender

import (
	"logship/src/internal/cwlogs"
	"logship/src/internal/delivery"
	"logship/src/internal/identity"
	"logship/src/internal/sink"

	"github.com/prometheus/client_golang/prometheus"
)

// Option customizes an Appender at construction
type Option func(*Appender)

// WithService uses svc instead of building a client from the configuration
func WithService(svc cwlogs.LogService) Option {
	return func(a *Appender) { a.service = svc }
}

// WithServiceFactory defers building the service handle to the first delivery
func WithServiceFactory(f delivery.ServiceFactory) Option {
	return func(a *Appender) { a.factory = f }
}

// WithIdentity replaces the instance metadata lookup
func WithIdentity(m identity.MetadataProvider, t identity.TagProvider) Option {
	return func(a *Appender) {
		a.metadata = m
		a.tags = t
	}
}

// WithFallback attaches s as the fallback sink
func WithFallback(s sink.Fallback) Option {
	return func(a *Appender) {
		if s != nil {
			a.fallback.Store(&fallbackRef{sink: s})
		}
	}
}

// WithMetrics registers the pipeline collectors on reg during Start
func WithMetrics(reg prometheus.Registerer) Option {
	return func(a *Appender) { a.registerer = reg }
}
