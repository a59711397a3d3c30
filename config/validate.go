package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/CrescendoLabs/FeedKit/hooks/guards"
)

// ValidationError reports a config field that failed validation. Field is
// the dotted path from the document root (e.g. "optimizer.cache_ttl").
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return "config validation error: " + e.Field + ": " + e.Message + " (got: " + e.Value + ")"
	}
	return "config validation error: " + e.Field + ": " + e.Message
}

// Validate checks every section and returns the first violation as a
// *ValidationError carrying the field path.
func (c *Config) Validate() error {
	if err := c.LoadState.validate(); err != nil {
		return err
	}
	if err := c.Filters.validate(); err != nil {
		return err
	}
	if err := c.Optimizer.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (c *LoadStateConfig) validate() error {
	if c.ErrorBudget <= 0 {
		return &ValidationError{
			Field:   "load_state.error_budget",
			Message: "must be positive",
			Value:   strconv.Itoa(c.ErrorBudget),
		}
	}
	return checkDuration("load_state.error_cooldown", c.ErrorCooldown, true)
}

func (c *FiltersConfig) validate() error {
	switch c.Strategy {
	case "search-priority", "dashboard-priority":
	case "merge":
		return &ValidationError{
			Field:   "filters.strategy",
			Message: "not supported; use search-priority or dashboard-priority",
			Value:   c.Strategy,
		}
	default:
		return &ValidationError{
			Field:   "filters.strategy",
			Message: "must be one of: search-priority, dashboard-priority",
			Value:   c.Strategy,
		}
	}
	if err := checkDuration("filters.debounce", c.Debounce, true); err != nil {
		return err
	}
	if c.HistoryCap <= 0 {
		return &ValidationError{
			Field:   "filters.history_cap",
			Message: "must be positive",
			Value:   strconv.Itoa(c.HistoryCap),
		}
	}
	return checkDuration("filters.stale_window", c.StaleWindow, true)
}

func (c *OptimizerConfig) validate() error {
	positives := []struct {
		field string
		value int
	}{
		{"optimizer.max_records", c.MaxRecords},
		{"optimizer.base_batch_size", c.BaseBatchSize},
		{"optimizer.prefetch_distance", c.PrefetchDistance},
		{"optimizer.sample_window", c.SampleWindow},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return &ValidationError{
				Field:   p.field,
				Message: "must be positive",
				Value:   strconv.Itoa(p.value),
			}
		}
	}

	if err := checkDuration("optimizer.cache_ttl", c.CacheTTL, true); err != nil {
		return err
	}
	if err := checkDuration("optimizer.request_timeout", c.RequestTimeout, true); err != nil {
		return err
	}
	if err := checkDuration("optimizer.sweep_interval", c.SweepInterval, false); err != nil {
		return err
	}
	if err := checkDuration("optimizer.long_dwell", c.LongDwell, true); err != nil {
		return err
	}

	if c.FastScrollVelocity <= 0 {
		return &ValidationError{
			Field:   "optimizer.fast_scroll_velocity",
			Message: "must be positive",
			Value:   fmt.Sprintf("%g", c.FastScrollVelocity),
		}
	}
	if c.RateLimit < 0 {
		return &ValidationError{
			Field:   "optimizer.rate_limit",
			Message: "must not be negative",
			Value:   fmt.Sprintf("%g", c.RateLimit),
		}
	}
	if c.RateBurst < 0 {
		return &ValidationError{
			Field:   "optimizer.rate_burst",
			Message: "must not be negative",
			Value:   strconv.Itoa(c.RateBurst),
		}
	}

	for i, g := range c.Guards {
		field := fmt.Sprintf("optimizer.guards[%d].type", i)
		if g.Type == "" {
			return &ValidationError{Field: field, Message: "guard type is required"}
		}
		if _, err := guards.NewGuardHook(g.Type, g.Params); err != nil {
			return &ValidationError{Field: field, Message: err.Error(), Value: g.Type}
		}
	}
	return nil
}

func (c *LoggingConfig) validate() error {
	if c.DefaultLevel != "" && !isValidLogLevel(c.DefaultLevel) {
		return &ValidationError{
			Field:   "logging.default_level",
			Message: "must be one of: debug, info, warn, error",
			Value:   c.DefaultLevel,
		}
	}
	if c.Format != "" && c.Format != "json" && c.Format != "text" {
		return &ValidationError{
			Field:   "logging.format",
			Message: "must be one of: json, text",
			Value:   c.Format,
		}
	}
	for i, mod := range c.Modules {
		if mod.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("logging.modules[%d].name", i),
				Message: "module name is required",
			}
		}
		if mod.Level != "" && !isValidLogLevel(mod.Level) {
			return &ValidationError{
				Field:   "logging.modules[" + mod.Name + "].level",
				Message: "must be one of: debug, info, warn, error",
				Value:   mod.Level,
			}
		}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// checkDuration validates a Go duration string. When positive is set the
// parsed value must be > 0, otherwise >= 0.
func checkDuration(field, value string, positive bool) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return &ValidationError{
			Field:   field,
			Message: `must be a Go duration string (e.g. "30s")`,
			Value:   value,
		}
	}
	if positive && d <= 0 {
		return &ValidationError{Field: field, Message: "must be positive", Value: value}
	}
	if !positive && d < 0 {
		return &ValidationError{Field: field, Message: "must not be negative", Value: value}
	}
	return nil
}
