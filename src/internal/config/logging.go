// FILE: logship/src/internal/config/logging.go
package config

// LogConfig is the agent's own diagnostic logging, kept apart from the
// shipped records
type LogConfig struct {
	// none, stdout, stderr, split, file or all
	Output  string            `toml:"output"`
	Level   string            `toml:"level"`
	File    *LogFileConfig    `toml:"file"`
	Console *LogConsoleConfig `toml:"console"`
}

// LogFileConfig mirrors the rotation keys of the log package's file writer
type LogFileConfig struct {
	Directory       string  `toml:"directory"`
	Name            string  `toml:"name"`
	MaxSizeKB       int64   `toml:"max_size_kb"`
	MaxTotalSizeKB  int64   `toml:"max_total_size_kb"`
	RetentionPeriod float64 `toml:"retention_period_hrs"` // 0 keeps files forever
}

type LogConsoleConfig struct {
	// stdout, stderr, or split to send warn and error to stderr
	Target string `toml:"target"`
	Format string `toml:"format"`
}

func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "stderr",
		Level:  "info",
		File: &LogFileConfig{
			Directory:       "./log",
			Name:            "logship",
			MaxSizeKB:       100_000,
			MaxTotalSizeKB:  1_000_000,
			RetentionPeriod: 168,
		},
		Console: &LogConsoleConfig{Target: "stderr", Format: "txt"},
	}
}
