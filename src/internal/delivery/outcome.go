// FILE: logship/src/internal/delivery/outcome.go
package delivery

import (
	"errors"

	"logship/src/internal/cwlogs"
	"logship/src/internal/metrics"
)

type outcomeKind int

const (
	// Put accepted, token holds the next sequence token
	outcomeDelivered outcomeKind = iota
	// Stale token, retry with the expected one
	outcomeRetryWithToken
	// Batch already stored by an earlier attempt
	outcomeDuplicateAccepted
	// Anything else, no further attempts
	outcomeFailed
)

// outcome is the classification of one put attempt
type outcome struct {
	kind  outcomeKind
	token *string
	err   error
}

// classify maps the result of PutBatch onto an outcome. An empty next
// token means the service expects no token on the following put.
func classify(next string, err error) outcome {
	if err == nil {
		return outcome{kind: outcomeDelivered, token: optional(next)}
	}

	var stale *cwlogs.InvalidSequenceTokenError
	if errors.As(err, &stale) {
		return outcome{kind: outcomeRetryWithToken, token: stale.Expected, err: err}
	}

	var dup *cwlogs.DataAlreadyAcceptedError
	if errors.As(err, &dup) {
		return outcome{kind: outcomeDuplicateAccepted, token: dup.Expected, err: err}
	}

	return outcome{kind: outcomeFailed, err: err}
}

func (o outcome) metricLabel() string {
	switch o.kind {
	case outcomeDelivered:
		return metrics.OutcomeDelivered
	case outcomeRetryWithToken:
		return metrics.OutcomeStale
	case outcomeDuplicateAccepted:
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeFailed
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
