// FILE: logship/src/internal/source/stdin.go
package source

import (
	"bufio"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// StdinSource reads one record per line from standard input
type StdinSource struct {
	reader     io.Reader
	loggerName string

	subscribers []chan core.LogRecord
	done        chan struct{}
	stopOnce    sync.Once
	logger      *log.Logger

	// Statistics
	totalEntries  atomic.Uint64
	startTime     time.Time
	lastEntryTime atomic.Value // time.Time
}

// NewStdinSource creates a line reader over r, os.Stdin when r is nil
func NewStdinSource(cfg config.InputConfig, r io.Reader, logger *log.Logger) *StdinSource {
	if r == nil {
		r = os.Stdin
	}
	name := cfg.Logger
	if name == "" {
		name = "stdin"
	}

	s := &StdinSource{
		reader:      r,
		loggerName:  name,
		subscribers: make([]chan core.LogRecord, 0),
		done:        make(chan struct{}),
		logger:      logger,
		startTime:   time.Now(),
	}
	s.lastEntryTime.Store(time.Time{})
	return s
}

// Subscribe must be called before Start
func (s *StdinSource) Subscribe() <-chan core.LogRecord {
	ch := make(chan core.LogRecord, defaultBufferSize)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *StdinSource) Start() error {
	go s.readLoop()
	s.logger.Info("msg", "Stdin source started", "component", "stdin_source")
	return nil
}

// Stop does not wait for a read blocked on the terminal; the reader exits
// on its next line or at EOF
func (s *StdinSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.logger.Info("msg", "Stdin source stopped", "component", "stdin_source")
	})
}

func (s *StdinSource) GetStats() SourceStats {
	lastEntry, _ := s.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:          "stdin",
		TotalEntries:  s.totalEntries.Load(),
		StartTime:     s.startTime,
		LastEntryTime: lastEntry,
		Details:       map[string]any{},
	}
}

func (s *StdinSource) readLoop() {
	defer func() {
		for _, ch := range s.subscribers {
			close(ch)
		}
	}()

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-s.done:
			return
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		s.publish(parseLine(line, s.loggerName))
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("msg", "Scanner error reading stdin",
			"component", "stdin_source",
			"error", err)
		return
	}
	s.logger.Debug("msg", "Stdin reached EOF", "component", "stdin_source")
}

func (s *StdinSource) publish(rec core.LogRecord) {
	s.totalEntries.Add(1)
	s.lastEntryTime.Store(rec.Time)

	// Blocks while a subscriber is full so a fast pipe is throttled, not dropped
	for _, ch := range s.subscribers {
		select {
		case ch <- rec:
		case <-s.done:
			return
		}
	}
}
