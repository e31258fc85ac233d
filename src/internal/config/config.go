// FILE: logship/src/internal/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the complete agent configuration
type Config struct {
	// Internal diagnostics of the agent itself
	Logging *LogConfig `toml:"logging"`

	// Remote delivery pipeline
	Appender *AppenderConfig `toml:"appender"`

	// Prometheus endpoint
	Metrics *MetricsConfig `toml:"metrics"`

	// Agent mode inputs feeding the appender
	Inputs []InputConfig `toml:"inputs"`

	// Include/exclude chain applied to input lines
	Filters []FilterConfig `toml:"filters"`

	// Optional input rate limit
	RateLimit *RateLimitConfig `toml:"rate_limit"`

	// Interval of the periodic status report, 0 disables it
	StatusIntervalSec int64 `toml:"status_interval_sec"`
}

// AppenderConfig holds the delivery pipeline settings. It is read once
// before Start and treated as immutable afterwards.
type AppenderConfig struct {
	// Destination group, created when missing and CreateLogDests is set
	LogGroup string `toml:"log_group"`

	// Stream name template, may contain %instanceId style tokens
	LogStream string `toml:"log_stream"`

	Region string `toml:"region"`

	// Empty means https://logs.<region>.amazonaws.com
	Endpoint string `toml:"endpoint"`

	MaxBatchSize       int64 `toml:"max_batch_size"`
	MaxBatchTimeMS     int64 `toml:"max_batch_time_ms"`
	InternalQueueSize  int64 `toml:"internal_queue_size"`
	MaxQueueWaitTimeMS int64 `toml:"max_queue_wait_time_ms"`
	CreateLogDests     bool  `toml:"create_log_dests"`
	InitialWaitTimeMS  int64 `toml:"initial_wait_time_ms"`

	// Put attempts per batch, stale token retries included
	RetryCount int64 `toml:"retry_count"`

	// Bound on joining the worker during Stop
	ShutdownTimeoutMS int64 `toml:"shutdown_timeout_ms"`

	// Per remote call
	RequestTimeoutMS int64 `toml:"request_timeout_ms"`

	Format      *FormatConfig       `toml:"format"`
	Credentials *CredentialsOptions `toml:"credentials"`
	Identity    *IdentityOptions    `toml:"identity"`
	Fallback    *FallbackOptions    `toml:"fallback"`
}

// CredentialsOptions are static signing credentials. When empty the
// AWS_ACCESS_KEY_ID family of environment variables is consulted.
type CredentialsOptions struct {
	AccessKeyID  string `toml:"access_key_id"`
	SecretKey    string `toml:"secret_key"`
	SessionToken string `toml:"session_token"`
}

// IdentityOptions configure the instance metadata lookup used to expand
// the stream name
type IdentityOptions struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	TimeoutMS int64  `toml:"timeout_ms"`
}

// FallbackOptions select the emergency sink receiving undeliverable records
type FallbackOptions struct {
	// "stderr", "stdout", "file" or "none"
	Type string `toml:"type"`

	// File fallback only
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"`

	Format *FormatConfig `toml:"format"`
}

// FormatConfig selects the layout rendering records to text
type FormatConfig struct {
	// "raw", "txt" or "json"
	Type string `toml:"type"`

	TxtFormatOptions  *TxtFormatterOptions  `toml:"txt"`
	JSONFormatOptions *JSONFormatterOptions `toml:"json"`
}

type TxtFormatterOptions struct {
	Template        string `toml:"template"`
	TimestampFormat string `toml:"timestamp_format"`
}

type JSONFormatterOptions struct {
	Pretty         bool   `toml:"pretty"`
	TimestampField string `toml:"timestamp_field"`
	LevelField     string `toml:"level_field"`
	LoggerField    string `toml:"logger_field"`
	MessageField   string `toml:"message_field"`
}

// MetricsConfig exposes the Prometheus registry over HTTP
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`
	Path    string `toml:"path"`
}

// InputConfig is one agent input
type InputConfig struct {
	// "file" or "stdin"
	Type string `toml:"type"`

	// File inputs only
	Path string `toml:"path"`

	// Keep reading appended data and reopen on rotation
	Follow bool `toml:"follow"`

	// Start from the end of an existing file
	FromEnd bool `toml:"from_end"`

	// Logger name attached to records, defaults to the path or "stdin"
	Logger string `toml:"logger"`
}

// ResolvedEndpoint returns the configured endpoint or the regional default
func (c *AppenderConfig) ResolvedEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://logs.%s.amazonaws.com", c.Region)
}

func (c *AppenderConfig) BatchInterval() time.Duration {
	return time.Duration(c.MaxBatchTimeMS) * time.Millisecond
}

func (c *AppenderConfig) QueueWait() time.Duration {
	return time.Duration(c.MaxQueueWaitTimeMS) * time.Millisecond
}

func (c *AppenderConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialWaitTimeMS) * time.Millisecond
}

func (c *AppenderConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

func (c *AppenderConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func (o *IdentityOptions) Timeout() time.Duration {
	if o.TimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(o.TimeoutMS) * time.Millisecond
}
