// FILE: logship/src/internal/sink/file.go
package sink

import (
	"bytes"
	"fmt"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/format"

	"github.com/lixenwraith/log"
)

// FileSink writes fallback records to rotated files
type FileSink struct {
	*base
	writer *log.Logger // Internal logger instance for file writing
}

// NewFileSink configures the rotating writer. Files are opened on Start.
func NewFileSink(opts *config.FallbackOptions, formatter format.Formatter, logger *log.Logger) (*FileSink, error) {
	directory := opts.Directory
	if directory == "" {
		directory = "./"
		logger.Warn("msg", "No fallback directory provided, current directory will be used",
			"component", "file_sink")
	}

	name := opts.Name
	if name == "" {
		name = "logship-fallback"
	}

	writerConfig := log.DefaultConfig()
	writerConfig.Directory = directory
	writerConfig.Name = name
	writerConfig.EnableConsole = false // File only
	writerConfig.ShowTimestamp = false // Records carry their own timestamps
	writerConfig.ShowLevel = false

	if opts.MaxSizeMB > 0 {
		writerConfig.MaxSizeKB = opts.MaxSizeMB * 1000
	}
	if opts.MaxTotalSizeMB > 0 {
		writerConfig.MaxTotalSizeKB = opts.MaxTotalSizeMB * 1000
	}
	if opts.RetentionHours > 0 {
		writerConfig.RetentionPeriodHrs = opts.RetentionHours
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}

	fs := &FileSink{writer: writer}
	fs.base = newBase("file", formatter, logger, fs.writeOut)
	return fs, nil
}

func (fs *FileSink) writeOut(formatted []byte) {
	// Strip the newline, the writer adds it
	fs.writer.Message(string(bytes.TrimSuffix(formatted, []byte{'\n'})))
}

func (fs *FileSink) Start() error {
	if fs.Started() || fs.stopped.Load() {
		return nil
	}
	if err := fs.writer.Start(); err != nil {
		return fmt.Errorf("failed to start file writer: %w", err)
	}
	fs.start()
	return nil
}

func (fs *FileSink) Stop() {
	if !fs.stop() {
		return
	}

	if err := fs.writer.Shutdown(2 * time.Second); err != nil {
		fs.logger.Error("msg", "Error shutting down file writer",
			"component", "file_sink",
			"error", err)
	}

	fs.logger.Info("msg", "Fallback sink stopped",
		"component", "file_sink",
		"written", fs.totalProcessed.Load(),
		"dropped", fs.totalDropped.Load())
}
