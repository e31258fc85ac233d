// FILE: logship/src/internal/core/types.go
package core

import (
	"time"
)

// LogRecord is a single log event handed to the pipeline by a producer.
// Records are treated as immutable once accepted.
type LogRecord struct {
	Time     time.Time      `json:"time"`
	Level    Level          `json:"level,omitempty"`
	Logger   string         `json:"logger,omitempty"`
	Message  string         `json:"message"`
	Error    string         `json:"error,omitempty"` // error text or stack, if any
	Producer string         `json:"producer,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// EpochMillis returns the record timestamp in milliseconds since the epoch.
// The second value is false when the record carries no timestamp.
func (r LogRecord) EpochMillis() (int64, bool) {
	if r.Time.IsZero() {
		return 0, false
	}
	return r.Time.UnixMilli(), true
}
