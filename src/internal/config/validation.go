// FILE: logship/src/internal/config/validation.go
package config

import (
	"fmt"
	"regexp"
	"strings"

	"logship/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

// validateConfig is the centralized validator for the entire configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := cfg.Appender.Validate(); err != nil {
		return fmt.Errorf("appender config: %w", err)
	}

	if err := validateMetrics(cfg.Metrics); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	for i := range cfg.Inputs {
		if err := validateInput(i, &cfg.Inputs[i]); err != nil {
			return err
		}
	}

	for i := range cfg.Filters {
		if err := validateFilter(i, &cfg.Filters[i]); err != nil {
			return err
		}
	}

	if err := validateRateLimit(cfg.RateLimit); err != nil {
		return err
	}

	if cfg.StatusIntervalSec < 0 {
		return fmt.Errorf("status_interval_sec cannot be negative")
	}

	return nil
}

// Validate checks the appender settings. Start refuses to run with an
// invalid configuration.
func (c *AppenderConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("appender config is nil")
	}
	if err := lconfig.NonEmpty(c.LogGroup); err != nil {
		return fmt.Errorf("log_group is required")
	}
	if err := lconfig.NonEmpty(c.LogStream); err != nil {
		return fmt.Errorf("log_stream is required")
	}
	if err := lconfig.NonEmpty(c.Region); err != nil {
		return fmt.Errorf("region is required")
	}

	if c.Endpoint != "" && !hasHTTPScheme(c.Endpoint) {
		return fmt.Errorf("endpoint must start with http:// or https://: %s", c.Endpoint)
	}

	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be positive: %d", c.MaxBatchSize)
	}
	if c.MaxBatchTimeMS < 1 {
		return fmt.Errorf("max_batch_time_ms must be positive: %d", c.MaxBatchTimeMS)
	}
	if c.InternalQueueSize < 1 {
		return fmt.Errorf("internal_queue_size must be positive: %d", c.InternalQueueSize)
	}
	if c.MaxQueueWaitTimeMS < 0 {
		return fmt.Errorf("max_queue_wait_time_ms cannot be negative: %d", c.MaxQueueWaitTimeMS)
	}
	if c.InitialWaitTimeMS < 0 {
		return fmt.Errorf("initial_wait_time_ms cannot be negative: %d", c.InitialWaitTimeMS)
	}
	if c.RetryCount < 1 {
		return fmt.Errorf("retry_count must be at least 1: %d", c.RetryCount)
	}
	if c.ShutdownTimeoutMS < 0 {
		return fmt.Errorf("shutdown_timeout_ms cannot be negative: %d", c.ShutdownTimeoutMS)
	}
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("request_timeout_ms cannot be negative: %d", c.RequestTimeoutMS)
	}

	if err := validateFormat(c.Format); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	if c.Credentials != nil && c.Credentials.AccessKeyID != "" {
		if err := lconfig.NonEmpty(c.Credentials.SecretKey); err != nil {
			return fmt.Errorf("credentials.secret_key is required with access_key_id")
		}
	}

	if c.Identity != nil && c.Identity.Enabled {
		if !hasHTTPScheme(c.Identity.Endpoint) {
			return fmt.Errorf("identity.endpoint must start with http:// or https://: %s", c.Identity.Endpoint)
		}
		if c.Identity.TimeoutMS < 0 {
			return fmt.Errorf("identity.timeout_ms cannot be negative: %d", c.Identity.TimeoutMS)
		}
	}

	return validateFallback(c.Fallback)
}

func validateFallback(opts *FallbackOptions) error {
	if opts == nil {
		return nil
	}

	switch opts.Type {
	case "", "none", "stdout", "stderr":
	case "file":
		if err := lconfig.NonEmpty(opts.Directory); err != nil {
			return fmt.Errorf("fallback: file requires 'directory'")
		}
		if err := lconfig.NonEmpty(opts.Name); err != nil {
			return fmt.Errorf("fallback: file requires 'name'")
		}
		if opts.MaxSizeMB < 0 || opts.MaxTotalSizeMB < 0 {
			return fmt.Errorf("fallback: file sizes cannot be negative")
		}
		if opts.RetentionHours < 0 {
			return fmt.Errorf("fallback: retention_hours cannot be negative")
		}
	default:
		return fmt.Errorf("fallback: unknown type '%s'", opts.Type)
	}

	if err := validateFormat(opts.Format); err != nil {
		return fmt.Errorf("fallback format: %w", err)
	}
	return nil
}

func validateFormat(cfg *FormatConfig) error {
	if cfg == nil {
		return nil
	}
	switch cfg.Type {
	case "", "raw", "json":
	case "txt":
		if cfg.TxtFormatOptions != nil && strings.TrimSpace(cfg.TxtFormatOptions.Template) == "" {
			return fmt.Errorf("txt template cannot be empty")
		}
	default:
		return fmt.Errorf("invalid format type '%s' (must be 'raw', 'txt' or 'json')", cfg.Type)
	}
	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	validOutputs := map[string]bool{
		"file": true, "stdout": true, "stderr": true,
		"split": true, "all": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[cfg.Console.Target] {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}

		validFormats := map[string]bool{
			"txt": true, "json": true, "": true,
		}
		if !validFormats[cfg.Console.Format] {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	if cfg.Output == "file" || cfg.Output == "all" {
		if cfg.File == nil {
			return fmt.Errorf("file output requires [logging.file]")
		}
		if err := lconfig.NonEmpty(cfg.File.Directory); err != nil {
			return fmt.Errorf("logging.file requires 'directory'")
		}
	}

	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if err := lconfig.Port(cfg.Port); err != nil {
		return err
	}
	if cfg.Host != "" {
		if err := lconfig.IPAddress(cfg.Host); err != nil {
			return err
		}
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("path must start with /: %s", cfg.Path)
	}
	return nil
}

func validateInput(index int, in *InputConfig) error {
	if err := lconfig.NonEmpty(in.Type); err != nil {
		return fmt.Errorf("input[%d]: missing type", index)
	}

	switch in.Type {
	case "stdin":
	case "file":
		if err := lconfig.NonEmpty(in.Path); err != nil {
			return fmt.Errorf("input[%d]: file requires 'path'", index)
		}
		if strings.Contains(in.Path, "..") {
			return fmt.Errorf("input[%d]: path contains directory traversal", index)
		}
	default:
		return fmt.Errorf("input[%d]: unknown type '%s'", index, in.Type)
	}
	return nil
}

func validateFilter(index int, cfg *FilterConfig) error {
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
	default:
		return fmt.Errorf("filter[%d]: invalid type '%s' (must be 'include' or 'exclude')", index, cfg.Type)
	}

	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
	default:
		return fmt.Errorf("filter[%d]: invalid logic '%s' (must be 'or' or 'and')", index, cfg.Logic)
	}

	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("filter[%d] pattern[%d] '%s': invalid regex: %w", index, i, pattern, err)
		}
	}

	if cfg.MinLevel != "" && core.ParseLevel(cfg.MinLevel) == "" {
		return fmt.Errorf("filter[%d]: unknown min_level '%s'", index, cfg.MinLevel)
	}
	return nil
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if cfg == nil {
		return nil
	}

	if cfg.Rate < 0 {
		return fmt.Errorf("rate limit rate cannot be negative")
	}
	if cfg.Burst < 0 {
		return fmt.Errorf("rate limit burst cannot be negative")
	}
	if cfg.MaxEntrySizeBytes < 0 {
		return fmt.Errorf("max entry size bytes cannot be negative")
	}

	switch strings.ToLower(cfg.Policy) {
	case "", "pass", "drop":
	default:
		return fmt.Errorf("invalid rate limit policy '%s' (must be 'pass' or 'drop')", cfg.Policy)
	}
	return nil
}

func hasHTTPScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
