// FILE: logship/src/internal/format/txt_test.go
package format

import (
	"testing"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTxtFormatter(t *testing.T) {
	t.Run("InvalidTemplate", func(t *testing.T) {
		opts := &config.TxtFormatterOptions{Template: "{{ .Timestamp | InvalidFunc }}"}
		_, err := NewTxtFormatter(opts, newTestLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid template")
	})
}

func TestTxtFormatter_Format(t *testing.T) {
	logger := newTestLogger()
	testTime := time.Date(2023, 10, 27, 10, 30, 0, 0, time.UTC)
	rec := core.LogRecord{
		Time:    testTime,
		Logger:  "api",
		Level:   core.LevelWarn,
		Message: "rate limit exceeded",
	}

	t.Run("DefaultTemplate", func(t *testing.T) {
		formatter, err := NewTxtFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		assert.Equal(t, "[2023-10-27T10:30:00.000Z] [WARN] api - rate limit exceeded\n", string(output))
	})

	t.Run("DefaultTemplateWithError", func(t *testing.T) {
		formatter, err := NewTxtFormatter(nil, logger)
		require.NoError(t, err)

		withErr := rec
		withErr.Error = "timeout"
		output, err := formatter.Format(withErr)
		require.NoError(t, err)

		assert.Equal(t, "[2023-10-27T10:30:00.000Z] [WARN] api - rate limit exceeded timeout\n", string(output))
	})

	t.Run("CustomTemplate", func(t *testing.T) {
		opts := &config.TxtFormatterOptions{Template: "{{.Level}}:{{.Logger}}:{{.Message}}"}
		formatter, err := NewTxtFormatter(opts, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		assert.Equal(t, "WARN:api:rate limit exceeded\n", string(output))
	})

	t.Run("CustomTimestampFormat", func(t *testing.T) {
		opts := &config.TxtFormatterOptions{
			Template:        "{{.Timestamp | FmtTime}}",
			TimestampFormat: "2006-01-02",
		}
		formatter, err := NewTxtFormatter(opts, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		assert.Equal(t, "2023-10-27\n", string(output))
	})

	t.Run("MissingTimestampAndLevel", func(t *testing.T) {
		formatter, err := NewTxtFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(core.LogRecord{Logger: "worker", Message: "tick"})
		require.NoError(t, err)

		assert.Equal(t, "[-] [INFO] worker - tick\n", string(output))
	})
}
