// FILE: logship/src/internal/format/raw.go
package format

import (
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Outputs the message as-is with a newline
type RawFormatter struct {
	logger *log.Logger
}

func NewRawFormatter(logger *log.Logger) (*RawFormatter, error) {
	return &RawFormatter{
		logger: logger,
	}, nil
}

func (f *RawFormatter) Format(rec core.LogRecord) ([]byte, error) {
	out := make([]byte, 0, len(rec.Message)+len(rec.Error)+2)
	out = append(out, rec.Message...)
	if rec.Error != "" {
		out = append(out, '\n')
		out = append(out, rec.Error...)
	}
	return append(out, '\n'), nil
}

func (f *RawFormatter) Name() string {
	return "raw"
}
