// FILE: logship/src/internal/format/json_test.go
package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	logger := newTestLogger()
	testTime := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := core.LogRecord{
		Time:     testTime,
		Logger:   "test-app",
		Level:    core.LevelInfo,
		Message:  "this is a test",
		Producer: "worker-1",
	}

	decode := func(t *testing.T, output []byte) map[string]any {
		t.Helper()
		var result map[string]any
		require.NoError(t, json.Unmarshal(output, &result), "Output should be valid JSON")
		return result
	}

	t.Run("BasicFormatting", func(t *testing.T) {
		formatter, err := NewJSONFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		result := decode(t, output)
		assert.Equal(t, testTime.Format(time.RFC3339Nano), result["timestamp"])
		assert.Equal(t, "INFO", result["level"])
		assert.Equal(t, "test-app", result["logger"])
		assert.Equal(t, "this is a test", result["message"])
		assert.Equal(t, "worker-1", result["producer"])
		assert.True(t, strings.HasSuffix(string(output), "\n"), "Output should end with a newline")
	})

	t.Run("NoTimestamp", func(t *testing.T) {
		formatter, err := NewJSONFormatter(nil, logger)
		require.NoError(t, err)

		untimed := rec
		untimed.Time = time.Time{}
		output, err := formatter.Format(untimed)
		require.NoError(t, err)

		_, exists := decode(t, output)["timestamp"]
		assert.False(t, exists)
	})

	t.Run("PrettyFormatting", func(t *testing.T) {
		formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{Pretty: true}, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		assert.Contains(t, string(output), `  "level": "INFO"`)
		assert.True(t, strings.HasSuffix(string(output), "\n"))
	})

	t.Run("MessageIsJSON", func(t *testing.T) {
		jsonRec := rec
		jsonRec.Message = `{"user":"test","request_id":"abc-123"}`
		formatter, err := NewJSONFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(jsonRec)
		require.NoError(t, err)

		result := decode(t, output)
		assert.Equal(t, "test", result["user"])
		assert.Equal(t, "abc-123", result["request_id"])
		_, messageExists := result["message"]
		assert.False(t, messageExists, "message field should not exist when message is merged JSON")
	})

	t.Run("MessageIsJSONWithConflicts", func(t *testing.T) {
		jsonRec := rec
		jsonRec.Message = `{"level":"DEBUG","msg":"hello"}`
		formatter, err := NewJSONFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(jsonRec)
		require.NoError(t, err)

		result := decode(t, output)
		assert.Equal(t, "INFO", result["level"], "Record level should take precedence")
		assert.Equal(t, "hello", result["msg"])
	})

	t.Run("FieldsDoNotOverride", func(t *testing.T) {
		fieldRec := rec
		fieldRec.Fields = map[string]any{"level": "TRACE", "attempt": 3}
		formatter, err := NewJSONFormatter(nil, logger)
		require.NoError(t, err)

		output, err := formatter.Format(fieldRec)
		require.NoError(t, err)

		result := decode(t, output)
		assert.Equal(t, "INFO", result["level"])
		assert.Equal(t, float64(3), result["attempt"])
	})

	t.Run("CustomFieldNames", func(t *testing.T) {
		formatter, err := NewJSONFormatter(&config.JSONFormatterOptions{TimestampField: "@timestamp"}, logger)
		require.NoError(t, err)

		output, err := formatter.Format(rec)
		require.NoError(t, err)

		result := decode(t, output)
		_, defaultExists := result["timestamp"]
		assert.False(t, defaultExists)
		assert.Equal(t, testTime.Format(time.RFC3339Nano), result["@timestamp"])
	})
}
