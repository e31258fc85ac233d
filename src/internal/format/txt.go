// FILE: logship/src/internal/format/txt.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Produces human-readable text logs using templates
type TxtFormatter struct {
	config   *config.TxtFormatterOptions
	template *template.Template
	logger   *log.Logger
}

// Creates a new text formatter, nil options use the defaults
func NewTxtFormatter(opts *config.TxtFormatterOptions, logger *log.Logger) (*TxtFormatter, error) {
	defaults := config.DefaultFormatConfig().TxtFormatOptions
	if opts == nil {
		opts = defaults
	}
	resolved := *opts
	if resolved.Template == "" {
		resolved.Template = defaults.Template
	}
	if resolved.TimestampFormat == "" {
		resolved.TimestampFormat = defaults.TimestampFormat
	}

	f := &TxtFormatter{
		config: &resolved,
		logger: logger,
	}

	funcMap := template.FuncMap{
		"FmtTime":   f.fmtTime,
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("log").Funcs(funcMap).Parse(resolved.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	f.template = tmpl
	return f, nil
}

// Records without a timestamp render as "-"
func (f *TxtFormatter) fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(f.config.TimestampFormat)
}

// Formats the record using the template
func (f *TxtFormatter) Format(rec core.LogRecord) ([]byte, error) {
	level := string(rec.Level)
	if level == "" {
		level = string(core.LevelInfo)
	}

	data := map[string]any{
		"Timestamp": rec.Time,
		"Level":     level,
		"Logger":    rec.Logger,
		"Producer":  rec.Producer,
		"Message":   rec.Message,
		"Error":     rec.Error,
		"Fields":    rec.Fields,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "txt_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%s] [%s] %s - %s\n",
			f.fmtTime(rec.Time),
			strings.ToUpper(level),
			rec.Logger,
			rec.Message)
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}

	return result, nil
}

func (f *TxtFormatter) Name() string {
	return "txt"
}
