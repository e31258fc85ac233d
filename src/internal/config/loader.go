// FILE: logship/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "LOGSHIP_"

// DefaultAppenderConfig returns the appender defaults. LogGroup, LogStream
// and Region have no default and must be supplied.
func DefaultAppenderConfig() *AppenderConfig {
	return &AppenderConfig{
		MaxBatchSize:       128,
		MaxBatchTimeMS:     5000,
		InternalQueueSize:  8192,
		MaxQueueWaitTimeMS: 100,
		CreateLogDests:     true,
		InitialWaitTimeMS:  0,
		RetryCount:         2,
		ShutdownTimeoutMS:  1000,
		RequestTimeoutMS:   10000,
		Format:             DefaultFormatConfig(),
		Credentials:        &CredentialsOptions{},
		Identity: &IdentityOptions{
			Enabled:   true,
			Endpoint:  "http://169.254.169.254",
			TimeoutMS: 1000,
		},
		Fallback: &FallbackOptions{
			Type:           "stderr",
			Directory:      "./log",
			Name:           "logship-fallback",
			MaxSizeMB:      100,
			MaxTotalSizeMB: 1000,
			RetentionHours: 168,
			Format:         DefaultFormatConfig(),
		},
	}
}

// DefaultFormatConfig returns the txt layout with its default template
func DefaultFormatConfig() *FormatConfig {
	return &FormatConfig{
		Type: "txt",
		TxtFormatOptions: &TxtFormatterOptions{
			Template:        "[{{.Timestamp | FmtTime}}] [{{.Level | ToUpper}}] {{.Logger}} - {{.Message}}{{ if .Error }} {{.Error}}{{ end }}",
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		},
		JSONFormatOptions: &JSONFormatterOptions{
			TimestampField: "timestamp",
			LevelField:     "level",
			LoggerField:    "logger",
			MessageField:   "message",
		},
	}
}

func defaults() *Config {
	return &Config{
		Logging:  DefaultLogConfig(),
		Appender: DefaultAppenderConfig(),
		Metrics: &MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9464,
			Path:    "/metrics",
		},
		Inputs: []InputConfig{
			{Type: "stdin", Logger: "stdin"},
		},
		RateLimit:         &RateLimitConfig{},
		StatusIntervalSec: 30,
	}
}

// LoadWithCLI builds the configuration from defaults, the TOML file, the
// LOGSHIP_ environment and command line overrides, in rising precedence.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	applyDefaults(finalConfig)
	return finalConfig, validateConfig(finalConfig)
}

// applyDefaults fills sections a partial file left nil
func applyDefaults(cfg *Config) {
	def := defaults()
	if cfg.Logging == nil {
		cfg.Logging = def.Logging
	}
	if cfg.Appender == nil {
		cfg.Appender = def.Appender
	}
	if cfg.Appender.Format == nil {
		cfg.Appender.Format = DefaultFormatConfig()
	}
	if cfg.Appender.Credentials == nil {
		cfg.Appender.Credentials = &CredentialsOptions{}
	}
	if cfg.Appender.Identity == nil {
		cfg.Appender.Identity = def.Appender.Identity
	}
	if cfg.Appender.Fallback == nil {
		cfg.Appender.Fallback = def.Appender.Fallback
	}
	if cfg.Appender.Fallback.Format == nil {
		cfg.Appender.Fallback.Format = DefaultFormatConfig()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = def.Metrics
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = def.RateLimit
	}
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

func GetConfigPath() string {
	if configFile := os.Getenv("LOGSHIP_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGSHIP_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGSHIP_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logship.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logship.toml")
	}

	return "logship.toml"
}
