// FILE: logship/src/internal/source/source.go
package source

import (
	"fmt"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Per-subscriber channel capacity
const defaultBufferSize = 1000

// Source is an agent input producing records
type Source interface {
	// Subscribe returns a channel receiving records. The channel is closed
	// when the input is exhausted or stopped.
	Subscribe() <-chan core.LogRecord

	// Start begins reading from the input
	Start() error

	// Stop shuts the input down
	Stop()

	// GetStats returns input statistics
	GetStats() SourceStats
}

// SourceStats contains statistics about an input
type SourceStats struct {
	Type          string
	TotalEntries  uint64
	StartTime     time.Time
	LastEntryTime time.Time
	Details       map[string]any
}

// New creates the input described by cfg
func New(cfg config.InputConfig, logger *log.Logger) (Source, error) {
	switch cfg.Type {
	case "stdin":
		return NewStdinSource(cfg, nil, logger), nil
	case "file":
		return NewFileSource(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown input type: %s", cfg.Type)
	}
}
