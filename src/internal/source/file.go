// FILE: logship/src/internal/source/file.go
package source

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/hpcloud/tail"
	"github.com/lixenwraith/log"
)

// FileSource tails a single file. In follow mode it keeps reading appended
// data and reopens the file after rotation; otherwise it stops at EOF.
type FileSource struct {
	config     config.InputConfig
	loggerName string

	tail        *tail.Tail
	subscribers []chan core.LogRecord
	done        chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once
	logger      *log.Logger

	// Statistics
	totalEntries  atomic.Uint64
	readErrors    atomic.Uint64
	startTime     time.Time
	lastEntryTime atomic.Value // time.Time
}

// NewFileSource creates a file input, the file is opened by Start
func NewFileSource(cfg config.InputConfig, logger *log.Logger) (*FileSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file input requires a path")
	}
	name := cfg.Logger
	if name == "" {
		name = cfg.Path
	}

	s := &FileSource{
		config:      cfg,
		loggerName:  name,
		subscribers: make([]chan core.LogRecord, 0),
		done:        make(chan struct{}),
		logger:      logger,
	}
	s.lastEntryTime.Store(time.Time{})
	return s, nil
}

// Subscribe must be called before Start
func (s *FileSource) Subscribe() <-chan core.LogRecord {
	ch := make(chan core.LogRecord, defaultBufferSize)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *FileSource) Start() error {
	tailCfg := tail.Config{
		Follow:    s.config.Follow,
		ReOpen:    s.config.Follow,
		MustExist: !s.config.Follow,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	}
	if s.config.FromEnd {
		tailCfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(s.config.Path, tailCfg)
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", s.config.Path, err)
	}
	s.tail = t
	s.startTime = time.Now()

	s.wg.Add(1)
	go s.readLoop()

	s.logger.Info("msg", "File source started",
		"component", "file_source",
		"path", s.config.Path,
		"follow", s.config.Follow,
		"from_end", s.config.FromEnd)
	return nil
}

func (s *FileSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.tail != nil {
			s.wg.Wait()
			// The tailer blocks on unread lines and would never observe the stop
			go func() {
				for range s.tail.Lines {
				}
			}()
			if err := s.tail.Stop(); err != nil {
				s.logger.Debug("msg", "Tail stopped with error",
					"component", "file_source",
					"path", s.config.Path,
					"error", err)
			}
			s.tail.Cleanup()
		}
		s.logger.Info("msg", "File source stopped",
			"component", "file_source",
			"path", s.config.Path)
	})
}

func (s *FileSource) GetStats() SourceStats {
	lastEntry, _ := s.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:          "file",
		TotalEntries:  s.totalEntries.Load(),
		StartTime:     s.startTime,
		LastEntryTime: lastEntry,
		Details: map[string]any{
			"path":        s.config.Path,
			"follow":      s.config.Follow,
			"read_errors": s.readErrors.Load(),
		},
	}
}

func (s *FileSource) readLoop() {
	defer s.wg.Done()
	defer func() {
		for _, ch := range s.subscribers {
			close(ch)
		}
	}()

	for {
		select {
		case line, ok := <-s.tail.Lines:
			if !ok {
				if err := s.tail.Wait(); err != nil {
					s.logger.Error("msg", "File tail ended with error",
						"component", "file_source",
						"path", s.config.Path,
						"error", err)
				}
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				s.readErrors.Add(1)
				s.logger.Warn("msg", "Error reading file",
					"component", "file_source",
					"path", s.config.Path,
					"error", line.Err)
				continue
			}
			if line.Text == "" {
				continue
			}
			if !s.publish(parseLine(line.Text, s.loggerName)) {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *FileSource) publish(rec core.LogRecord) bool {
	s.totalEntries.Add(1)
	s.lastEntryTime.Store(rec.Time)

	for _, ch := range s.subscribers {
		select {
		case ch <- rec:
		case <-s.done:
			return false
		}
	}
	return true
}
