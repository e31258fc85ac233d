// FILE: logship/src/internal/source/parse.go
package source

import (
	"encoding/json"
	"strings"
	"time"

	"logship/src/internal/core"
)

// parseLine turns one input line into a record. Lines holding a JSON object
// with a "msg" or "message" key are unpacked; anything else is kept verbatim
// with the level guessed from its text.
func parseLine(line, logger string) core.LogRecord {
	var jsonLog struct {
		Time    string         `json:"time"`
		Level   string         `json:"level"`
		Msg     string         `json:"msg"`
		Message string         `json:"message"`
		Error   string         `json:"error"`
		Fields  map[string]any `json:"fields"`
	}

	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		if err := json.Unmarshal([]byte(line), &jsonLog); err == nil {
			msg := jsonLog.Msg
			if msg == "" {
				msg = jsonLog.Message
			}
			if msg != "" {
				timestamp, err := time.Parse(time.RFC3339Nano, jsonLog.Time)
				if err != nil {
					timestamp = time.Now()
				}

				level := core.ParseLevel(jsonLog.Level)
				if level == "" {
					level = extractLogLevel(msg)
				}

				return core.LogRecord{
					Time:    timestamp,
					Level:   level,
					Logger:  logger,
					Message: msg,
					Error:   jsonLog.Error,
					Fields:  jsonLog.Fields,
				}
			}
		}
	}

	return core.LogRecord{
		Time:    time.Now(),
		Level:   extractLogLevel(line),
		Logger:  logger,
		Message: line,
	}
}

// extractLogLevel looks for common level markers in a plain text line
func extractLogLevel(line string) core.Level {
	patterns := []struct {
		patterns []string
		level    core.Level
	}{
		{[]string{"[ERROR]", "ERROR:", " ERROR ", "ERR:", "[ERR]", "FATAL:", "[FATAL]"}, core.LevelError},
		{[]string{"[WARN]", "WARN:", " WARN ", "WARNING:", "[WARNING]"}, core.LevelWarn},
		{[]string{"[INFO]", "INFO:", " INFO ", "[INF]", "INF:"}, core.LevelInfo},
		{[]string{"[DEBUG]", "DEBUG:", " DEBUG ", "[DBG]", "DBG:"}, core.LevelDebug},
		{[]string{"[TRACE]", "TRACE:", " TRACE "}, core.LevelTrace},
	}

	upperLine := strings.ToUpper(line)
	for _, group := range patterns {
		for _, pattern := range group.patterns {
			if strings.Contains(upperLine, pattern) {
				return group.level
			}
		}
	}

	return ""
}
