// FILE: logship/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one JSON object per record
type JSONFormatter struct {
	config *config.JSONFormatterOptions
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter, empty field names use the defaults
func NewJSONFormatter(opts *config.JSONFormatterOptions, logger *log.Logger) (*JSONFormatter, error) {
	defaults := config.DefaultFormatConfig().JSONFormatOptions
	if opts == nil {
		opts = defaults
	}
	resolved := *opts
	if resolved.TimestampField == "" {
		resolved.TimestampField = defaults.TimestampField
	}
	if resolved.LevelField == "" {
		resolved.LevelField = defaults.LevelField
	}
	if resolved.LoggerField == "" {
		resolved.LoggerField = defaults.LoggerField
	}
	if resolved.MessageField == "" {
		resolved.MessageField = defaults.MessageField
	}

	return &JSONFormatter{
		config: &resolved,
		logger: logger,
	}, nil
}

// Format transforms a record into a JSON line. A message that is itself a
// JSON object is merged, the standard fields win on conflict.
func (f *JSONFormatter) Format(rec core.LogRecord) ([]byte, error) {
	output := make(map[string]any)

	if !rec.Time.IsZero() {
		output[f.config.TimestampField] = rec.Time.UTC().Format(time.RFC3339Nano)
	}
	output[f.config.LevelField] = string(rec.Level)
	output[f.config.LoggerField] = rec.Logger
	if rec.Producer != "" {
		output["producer"] = rec.Producer
	}
	if rec.Error != "" {
		output["error"] = rec.Error
	}

	var msgData map[string]any
	if err := json.Unmarshal([]byte(rec.Message), &msgData); err == nil {
		for k, v := range msgData {
			if _, exists := output[k]; !exists {
				output[k] = v
			}
		}

		if _, hasTime := msgData[f.config.TimestampField]; hasTime {
			f.logger.Debug("msg", "Overriding timestamp from JSON message",
				"component", "json_formatter",
				"original", msgData[f.config.TimestampField])
		}
	} else {
		output[f.config.MessageField] = rec.Message
	}

	// Structured fields never override existing keys
	for k, v := range rec.Fields {
		if _, exists := output[k]; !exists {
			output[k] = v
		}
	}

	var result []byte
	var err error
	if f.config.Pretty {
		result, err = json.MarshalIndent(output, "", "  ")
	} else {
		result, err = json.Marshal(output)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

func (f *JSONFormatter) Name() string {
	return "json"
}
