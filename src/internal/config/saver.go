// FILE: logship/src/internal/config/saver.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

const redactedValue = "[REDACTED]"

// SaveToFile writes the configuration as TOML. Secrets are written as is;
// use Redacted first when the output is meant for display.
func (c *Config) SaveToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Redacted returns a copy with credential secrets masked
func (c *Config) Redacted() *Config {
	out := *c
	if c.Appender != nil {
		app := *c.Appender
		if c.Appender.Credentials != nil {
			creds := *c.Appender.Credentials
			if creds.SecretKey != "" {
				creds.SecretKey = redactedValue
			}
			if creds.SessionToken != "" {
				creds.SessionToken = redactedValue
			}
			app.Credentials = &creds
		}
		out.Appender = &app
	}
	return &out
}
