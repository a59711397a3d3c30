// Package guards provides built-in FetchHook implementations that protect
// feed backends from oversized, unscoped, or runaway pagination requests.
package guards

import (
	"fmt"
	"time"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

// Guard type name constants shared between Name() methods and the factory.
const (
	namePageSize        = "page_size"
	nameRateWindow      = "rate_window"
	nameRequiredFilters = "required_filters"
)

// defaultRateWindow applies when a rate_window config omits the window.
const defaultRateWindow = time.Minute

// NewGuardHook creates a guard FetchHook from a config type name and
// params map. Configuration layers use this to instantiate guards declared
// in config files.
func NewGuardHook(typeName string, params map[string]any) (hooks.FetchHook, error) {
	switch typeName {
	case namePageSize:
		return newPageSizeFromParams(params), nil
	case nameRateWindow:
		return newRateWindowFromParams(params), nil
	case nameRequiredFilters:
		return newRequiredFiltersFromParams(params), nil
	default:
		return nil, fmt.Errorf("unknown guard type: %q", typeName)
	}
}

func newPageSizeFromParams(params map[string]any) *PageSizeHook {
	maxLimit := intParam(params, "max_limit")
	maxRecords := intParam(params, "max_records")
	return NewPageSizeHook(maxLimit, maxRecords)
}

func newRateWindowFromParams(params map[string]any) *RateWindowHook {
	maxFetches := intParam(params, "max_fetches")
	window := durationParam(params, "window", defaultRateWindow)
	return NewRateWindowHook(maxFetches, window)
}

func newRequiredFiltersFromParams(params map[string]any) *RequiredFiltersHook {
	var required []string
	if f, ok := params["required_filters"]; ok {
		switch v := f.(type) {
		case []string:
			required = v
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	return NewRequiredFiltersHook(required)
}

// intParam extracts an int parameter from a map, handling both int and
// float64 (common from JSON unmarshaling). Returns 0 if not found.
func intParam(params map[string]any, key string) int {
	v, ok := params[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// durationParam extracts a duration parameter given as a Go duration
// string (e.g. "30s"). Returns fallback when absent or unparseable.
func durationParam(params map[string]any, key string, fallback time.Duration) time.Duration {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
