// FILE: logship/src/internal/sink/console.go
package sink

import (
	"fmt"
	"io"
	"os"

	"logship/src/internal/format"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes fallback records to stdout or stderr
type ConsoleSink struct {
	*base
	output io.Writer
}

// NewConsoleSink creates a console sink for target "stdout" or "stderr".
// A non-nil output replaces the process stream.
func NewConsoleSink(target string, output io.Writer, formatter format.Formatter, logger *log.Logger) (*ConsoleSink, error) {
	if output == nil {
		switch target {
		case "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			return nil, fmt.Errorf("invalid console target: %s", target)
		}
	}

	s := &ConsoleSink{output: output}
	s.base = newBase(target, formatter, logger, s.writeOut)
	return s, nil
}

func (s *ConsoleSink) writeOut(formatted []byte) {
	if _, err := s.output.Write(formatted); err != nil {
		s.totalDropped.Add(1)
	}
}

func (s *ConsoleSink) Start() error {
	s.start()
	return nil
}

func (s *ConsoleSink) Stop() {
	if s.stop() {
		s.logger.Info("msg", "Fallback sink stopped",
			"component", s.name+"_sink",
			"written", s.totalProcessed.Load(),
			"dropped", s.totalDropped.Load())
	}
}
