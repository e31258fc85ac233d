// FILE: logship/src/internal/cwlogs/service.go
package cwlogs

import (
	"context"
	"fmt"
)

// InputEvent is the wire form of one record. A nil Timestamp means the
// record carried none.
type InputEvent struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}

// Stream describes an existing log stream
type Stream struct {
	Name                string
	UploadSequenceToken *string
}

// LogService is the set of remote operations the pipeline depends on
type LogService interface {
	// DescribeGroup reports whether a group with exactly this name exists
	DescribeGroup(ctx context.Context, name string) (bool, error)

	CreateGroup(ctx context.Context, name string) error

	// DescribeStream returns the stream named exactly prefix, or nil if absent
	DescribeStream(ctx context.Context, group, prefix string) (*Stream, error)

	CreateStream(ctx context.Context, group, name string) error

	// PutBatch appends events to a stream. token is omitted when nil.
	// It returns the token to present on the next put, which may be empty.
	PutBatch(ctx context.Context, group, stream string, token *string, events []InputEvent) (string, error)

	Close() error
}

// ServiceError is an error response returned by the remote service
type ServiceError struct {
	Op         string
	Type       string
	Message    string
	StatusCode int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s failed: %s (status %d): %s", e.Op, e.Type, e.StatusCode, e.Message)
}

// InvalidSequenceTokenError reports a stale token. Expected is the token the
// service wants next; nil means the put should carry no token.
type InvalidSequenceTokenError struct {
	Expected *string
	Err      *ServiceError
}

func (e *InvalidSequenceTokenError) Error() string { return e.Err.Error() }
func (e *InvalidSequenceTokenError) Unwrap() error { return e.Err }

// DataAlreadyAcceptedError reports that the batch was already stored by an
// earlier attempt
type DataAlreadyAcceptedError struct {
	Expected *string
	Err      *ServiceError
}

func (e *DataAlreadyAcceptedError) Error() string { return e.Err.Error() }
func (e *DataAlreadyAcceptedError) Unwrap() error { return e.Err }

// ResourceAlreadyExistsError is returned by creates racing another creator
type ResourceAlreadyExistsError struct {
	Err *ServiceError
}

func (e *ResourceAlreadyExistsError) Error() string { return e.Err.Error() }
func (e *ResourceAlreadyExistsError) Unwrap() error { return e.Err }
