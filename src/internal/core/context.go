// FILE: logship/src/internal/core/context.go
package core

import "context"

type producerKey struct{}

// WithProducer names the producing context so records accepted with it can be tagged.
func WithProducer(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, producerKey{}, name)
}

// ProducerFrom returns the producer name stored on ctx, or UnknownProducer.
func ProducerFrom(ctx context.Context) string {
	if ctx != nil {
		if name, ok := ctx.Value(producerKey{}).(string); ok && name != "" {
			return name
		}
	}
	return UnknownProducer
}
