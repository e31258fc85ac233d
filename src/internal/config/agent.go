// FILE: logship/src/internal/config/agent.go
package config

// FilterType selects whether matching lines are kept or discarded
type FilterType string

const (
	FilterTypeInclude FilterType = "include"
	FilterTypeExclude FilterType = "exclude"
)

// FilterLogic combines multiple patterns
type FilterLogic string

const (
	FilterLogicOr  FilterLogic = "or"
	FilterLogicAnd FilterLogic = "and"
)

// FilterConfig is one filter of the input chain
type FilterConfig struct {
	Type     FilterType  `toml:"type"`
	Logic    FilterLogic `toml:"logic"`
	Patterns []string    `toml:"patterns"`

	// Records below this level are dropped; records without a level pass
	MinLevel string `toml:"min_level"`
}

// RateLimitPolicy defines the action taken when the input rate is exceeded
type RateLimitPolicy int

const (
	// PolicyPass lets records through and only counts them
	PolicyPass RateLimitPolicy = iota
	// PolicyDrop discards records over the limit
	PolicyDrop
)

// RateLimitConfig limits the rate at which inputs feed the appender
type RateLimitConfig struct {
	// Records per second, 0 disables the limiter
	Rate float64 `toml:"rate"`
	// Defaults to Rate
	Burst float64 `toml:"burst"`
	// "pass" or "drop"
	Policy string `toml:"policy"`
	// 0 means no limit
	MaxEntrySizeBytes int64 `toml:"max_entry_size_bytes"`
}
