// FILE: logship/src/internal/guard/guard.go
package guard

import (
	"context"
	"fmt"
)

type guardKey struct{}

// Enter returns a context marked as belonging to the pipeline's own execution.
// Records accepted with a marked context are discarded instead of queued.
func Enter(ctx context.Context) context.Context {
	if Active(ctx) {
		return ctx
	}
	return context.WithValue(ctx, guardKey{}, true)
}

// Active reports whether ctx is marked by Enter.
func Active(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	marked, _ := ctx.Value(guardKey{}).(bool)
	return marked
}

// Run executes fn with a marked context. A panic inside fn is recovered and
// returned as an error; the caller's context is never marked.
func Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in guarded section: %v", r)
		}
	}()
	return fn(Enter(ctx))
}
