package config

import (
	"fmt"

	"github.com/CrescendoLabs/FeedKit/filtersync"
	"github.com/CrescendoLabs/FeedKit/hooks"
	"github.com/CrescendoLabs/FeedKit/hooks/guards"
	"github.com/CrescendoLabs/FeedKit/loadstate"
	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/pagination"
)

// Options converts the section into loadstate constructor options.
func (c LoadStateConfig) Options() []loadstate.Option {
	return []loadstate.Option{
		loadstate.WithErrorBudget(c.ErrorBudget),
		loadstate.WithErrorCooldown(c.CooldownDuration()),
	}
}

// Options converts the section into filtersync constructor options.
func (c FiltersConfig) Options() []filtersync.Option {
	return []filtersync.Option{
		filtersync.WithStrategy(filtersync.Strategy(c.Strategy)),
		filtersync.WithDebounce(c.DebounceDuration()),
		filtersync.WithHistoryCap(c.HistoryCap),
		filtersync.WithStaleWindow(c.StaleWindowDuration()),
	}
}

// Options converts the section into pagination constructor options. Guard
// hooks declared in the section are built separately via GuardRegistry.
func (c OptimizerConfig) Options() []pagination.Option {
	opts := []pagination.Option{
		pagination.WithMaxRecords(c.MaxRecords),
		pagination.WithCacheTTL(c.CacheTTLDuration()),
		pagination.WithRequestTimeout(c.RequestTimeoutDuration()),
		pagination.WithSweepInterval(c.SweepIntervalDuration()),
		pagination.WithBaseBatchSize(c.BaseBatchSize),
		pagination.WithPrefetchDistance(c.PrefetchDistance),
		pagination.WithFastScrollVelocity(c.FastScrollVelocity),
		pagination.WithLongDwell(c.LongDwellDuration()),
		pagination.WithSampleWindow(c.SampleWindow),
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, pagination.WithRateLimit(c.RateLimit, burst))
	}
	return opts
}

// GuardRegistry builds a hook registry from the declared guards. It returns
// nil when the section declares none, which components treat as no hooks.
func (c OptimizerConfig) GuardRegistry() (*hooks.Registry, error) {
	if len(c.Guards) == 0 {
		return nil, nil
	}
	regOpts := make([]hooks.Option, 0, len(c.Guards))
	for i, g := range c.Guards {
		h, err := guards.NewGuardHook(g.Type, g.Params)
		if err != nil {
			return nil, fmt.Errorf("guard %d: %w", i, err)
		}
		regOpts = append(regOpts, hooks.WithFetchHook(h))
	}
	return hooks.NewRegistry(regOpts...), nil
}

// Apply installs the logging section on the global logger.
func (c LoggingConfig) Apply() error {
	spec := &logger.LoggingConfigSpec{
		DefaultLevel: c.DefaultLevel,
		Format:       c.Format,
		CommonFields: c.CommonFields,
	}
	for _, m := range c.Modules {
		spec.Modules = append(spec.Modules, logger.ModuleLoggingSpec{Name: m.Name, Level: m.Level})
	}
	return logger.Configure(spec)
}
