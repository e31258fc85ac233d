// FILE: logship/src/internal/format/format.go
package format

import (
	"fmt"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter is the layout turning a record into the text that is shipped
type Formatter interface {
	// Format renders one record. Output ends with a newline.
	Format(rec core.LogRecord) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// NewFormatter creates a Formatter from configuration. A nil config or an
// empty type selects the txt layout.
func NewFormatter(cfg *config.FormatConfig, logger *log.Logger) (Formatter, error) {
	if cfg == nil {
		cfg = config.DefaultFormatConfig()
	}

	switch cfg.Type {
	case "json":
		return NewJSONFormatter(cfg.JSONFormatOptions, logger)
	case "txt", "":
		f, err := NewTxtFormatter(cfg.TxtFormatOptions, logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "raw":
		return NewRawFormatter(logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", cfg.Type)
	}
}
