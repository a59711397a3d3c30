// Package config provides YAML-loadable tuning for the FeedKit components.
//
// A config file is a single document with four optional sections:
//
//	load_state:
//	  error_budget: 5
//	  error_cooldown: 5m
//	filters:
//	  strategy: search-priority
//	  debounce: 300ms
//	optimizer:
//	  max_records: 100
//	  cache_ttl: 30s
//	  guards:
//	    - type: page_size
//	      params: {max_limit: 100}
//	logging:
//	  default_level: info
//	  format: text
//
// Absent fields keep their defaults; unknown fields are rejected. Durations
// are Go duration strings ("300ms", "5m"). Sections translate into component
// options via their Options methods.
package config

import "time"

// Config is the root configuration for all FeedKit components.
type Config struct {
	LoadState LoadStateConfig `yaml:"load_state"`
	Filters   FiltersConfig   `yaml:"filters"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoadStateConfig tunes the load-more state machine.
type LoadStateConfig struct {
	// ErrorBudget is the number of error entries tolerated before the
	// machine forces recovery to idle.
	ErrorBudget int `yaml:"error_budget"`
	// ErrorCooldown is how long exhaustion suppresses further error entries.
	ErrorCooldown string `yaml:"error_cooldown"`
}

// FiltersConfig tunes the filter state synchronizer.
type FiltersConfig struct {
	// Strategy selects conflict resolution: "search-priority" or
	// "dashboard-priority".
	Strategy string `yaml:"strategy"`
	// Debounce is the notification coalescing window.
	Debounce string `yaml:"debounce"`
	// HistoryCap bounds the in-memory snapshot history.
	HistoryCap int `yaml:"history_cap"`
	// StaleWindow is the maximum snapshot age eligible for restore.
	StaleWindow string `yaml:"stale_window"`
}

// OptimizerConfig tunes the pagination optimizer.
type OptimizerConfig struct {
	// MaxRecords is the in-memory record threshold before eviction.
	MaxRecords int `yaml:"max_records"`
	// CacheTTL is the default page cache lifetime.
	CacheTTL string `yaml:"cache_ttl"`
	// RequestTimeout bounds how long a Request waits for a fetch.
	RequestTimeout string `yaml:"request_timeout"`
	// SweepInterval is the expired-entry sweep period; "0s" disables the
	// background sweeper.
	SweepInterval string `yaml:"sweep_interval"`
	// BaseBatchSize is the batch size under normal network conditions.
	BaseBatchSize int `yaml:"base_batch_size"`
	// PrefetchDistance is the proximity trigger in records from the end.
	PrefetchDistance int `yaml:"prefetch_distance"`
	// FastScrollVelocity is the prefetch velocity trigger in px/s.
	FastScrollVelocity float64 `yaml:"fast_scroll_velocity"`
	// LongDwell is the prefetch dwell-time trigger.
	LongDwell string `yaml:"long_dwell"`
	// RateLimit caps fetch executions per second; 0 disables pacing.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the rate limiter burst size; defaults to 1 when a rate
	// limit is set.
	RateBurst int `yaml:"rate_burst"`
	// SampleWindow bounds the fetch duration samples kept for metrics.
	SampleWindow int `yaml:"sample_window"`
	// Guards declares fetch guard hooks to install.
	Guards []GuardConfig `yaml:"guards"`
}

// GuardConfig declares one guard hook by type name and parameters.
// Known types: "page_size", "rate_window", "required_filters".
type GuardConfig struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// LoggingConfig tunes the logger package.
type LoggingConfig struct {
	// DefaultLevel is the default log level: debug, info, warn or error.
	DefaultLevel string `yaml:"default_level"`
	// Format is the output format: "json" or "text".
	Format string `yaml:"format"`
	// CommonFields are key-value pairs added to every log entry.
	CommonFields map[string]string `yaml:"common_fields"`
	// Modules configures per-module levels (dot notation names).
	Modules []ModuleLogging `yaml:"modules"`
}

// ModuleLogging sets the level for one module subtree.
type ModuleLogging struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is provided.
// Every value matches the corresponding component default.
func DefaultConfig() Config {
	return Config{
		LoadState: LoadStateConfig{
			ErrorBudget:   5,
			ErrorCooldown: "5m",
		},
		Filters: FiltersConfig{
			Strategy:    "search-priority",
			Debounce:    "300ms",
			HistoryCap:  10,
			StaleWindow: "1h",
		},
		Optimizer: OptimizerConfig{
			MaxRecords:         100,
			CacheTTL:           "30s",
			RequestTimeout:     "10s",
			SweepInterval:      "1m",
			BaseBatchSize:      20,
			PrefetchDistance:   3,
			FastScrollVelocity: 1000,
			LongDwell:          "30s",
			SampleWindow:       256,
		},
		Logging: LoggingConfig{
			DefaultLevel: "info",
			Format:       "text",
		},
	}
}

// duration parses a Go duration string, falling back when absent or invalid.
// Validate reports invalid strings; accessors stay total.
func duration(s, fallback string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// CooldownDuration returns the parsed error cooldown.
func (c LoadStateConfig) CooldownDuration() time.Duration {
	return duration(c.ErrorCooldown, "5m")
}

// DebounceDuration returns the parsed debounce window.
func (c FiltersConfig) DebounceDuration() time.Duration {
	return duration(c.Debounce, "300ms")
}

// StaleWindowDuration returns the parsed restore staleness window.
func (c FiltersConfig) StaleWindowDuration() time.Duration {
	return duration(c.StaleWindow, "1h")
}

// CacheTTLDuration returns the parsed cache TTL.
func (c OptimizerConfig) CacheTTLDuration() time.Duration {
	return duration(c.CacheTTL, "30s")
}

// RequestTimeoutDuration returns the parsed request timeout.
func (c OptimizerConfig) RequestTimeoutDuration() time.Duration {
	return duration(c.RequestTimeout, "10s")
}

// SweepIntervalDuration returns the parsed sweep interval.
func (c OptimizerConfig) SweepIntervalDuration() time.Duration {
	return duration(c.SweepInterval, "1m")
}

// LongDwellDuration returns the parsed dwell trigger.
func (c OptimizerConfig) LongDwellDuration() time.Duration {
	return duration(c.LongDwell, "30s")
}
