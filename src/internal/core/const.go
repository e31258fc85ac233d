// FILE: logship/src/internal/core/const.go
package core

import "strings"

// Level is the severity attached to a record
type Level string

const (
	LevelTrace Level = "TRACE"
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel normalizes a free-form level name, empty for unknown input
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG", "DBG":
		return LevelDebug
	case "INFO", "INF":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR", "ERR", "FATAL":
		return LevelError
	default:
		return ""
	}
}

// Severity orders levels from TRACE (1) to ERROR (5), 0 for unknown
func (l Level) Severity() int {
	switch l {
	case LevelTrace:
		return 1
	case LevelDebug:
		return 2
	case LevelInfo:
		return 3
	case LevelWarn:
		return 4
	case LevelError:
		return 5
	default:
		return 0
	}
}

// UnknownProducer tags records whose producing context carries no identity
const UnknownProducer = "unknown"

// InternalLogger is the logger name on records synthesized by the pipeline itself
const InternalLogger = "logship"
