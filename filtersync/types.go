package filtersync

import (
	"errors"
	"time"
)

// Defaults for the complete dashboard filter set. A field holding its
// default is treated as inactive during conflict detection.
const (
	DefaultPostType  = "all"
	DefaultSortBy    = "newest"
	DefaultTimeRange = "all"
)

// ErrUnsupportedStrategy is returned by NewSynchronizer when the configured
// conflict strategy is not implemented.
var ErrUnsupportedStrategy = errors.New("unsupported conflict strategy")

// Strategy selects which side wins when both filter sources disagree on a
// field.
type Strategy string

const (
	// StrategySearchPriority resolves conflicts in favor of the search bar.
	StrategySearchPriority Strategy = "search-priority"
	// StrategyDashboardPriority resolves conflicts in favor of the dashboard.
	StrategyDashboardPriority Strategy = "dashboard-priority"
	// StrategyMerge is recognized in configuration but not implemented.
	StrategyMerge Strategy = "merge"
)

// ChangeSource identifies which operation produced a change detection.
type ChangeSource string

const (
	SourceSearch    ChangeSource = "search"
	SourceDashboard ChangeSource = "dashboard"
	SourceSync      ChangeSource = "sync"
	SourceReset     ChangeSource = "reset"
	SourceRestore   ChangeSource = "restore"
)

// Field names used in change detections, conflicts, and events.
const (
	FieldQuery     = "query"
	FieldPostType  = "post_type"
	FieldSortBy    = "sort_by"
	FieldTimeRange = "time_range"
)

// SearchFilters is the sparse filter set produced by the search bar. An
// empty string means the field is unset. SortBy uses the search vocabulary
// (recent, oldest, popular, likes, relevance).
type SearchFilters struct {
	Query     string `json:"query,omitempty"`
	PostType  string `json:"post_type,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	TimeRange string `json:"time_range,omitempty"`
}

// DashboardFilters is the complete filter set owned by the dashboard
// controls. Every field is always populated; SortBy uses the dashboard
// vocabulary (newest, oldest, popular).
type DashboardFilters struct {
	PostType  string `json:"post_type"`
	SortBy    string `json:"sort_by"`
	TimeRange string `json:"time_range"`
}

// DefaultDashboardFilters returns the dashboard filter defaults.
func DefaultDashboardFilters() DashboardFilters {
	return DashboardFilters{
		PostType:  DefaultPostType,
		SortBy:    DefaultSortBy,
		TimeRange: DefaultTimeRange,
	}
}

// withDefaults fills zero-value fields so the completeness invariant holds
// regardless of what the caller passed.
func (d DashboardFilters) withDefaults() DashboardFilters {
	if d.PostType == "" {
		d.PostType = DefaultPostType
	}
	if d.SortBy == "" {
		d.SortBy = DefaultSortBy
	}
	if d.TimeRange == "" {
		d.TimeRange = DefaultTimeRange
	}
	return d
}

// EffectiveFilters is the resolved filter set after applying the priority
// rule across both sources. SortBy is expressed in the dashboard
// vocabulary.
type EffectiveFilters struct {
	Query     string `json:"query,omitempty"`
	PostType  string `json:"post_type"`
	SortBy    string `json:"sort_by"`
	TimeRange string `json:"time_range"`
}

// FilterState bundles both sources with their resolved view.
type FilterState struct {
	Search    SearchFilters    `json:"search"`
	Dashboard DashboardFilters `json:"dashboard"`
	Effective EffectiveFilters `json:"effective"`
}

// Conflict describes one field where both sources held competing non-default
// values and how it was resolved.
type Conflict struct {
	Field          string   `json:"field"`
	SearchValue    string   `json:"search_value"`
	DashboardValue string   `json:"dashboard_value"`
	ResolvedValue  string   `json:"resolved_value"`
	Strategy       Strategy `json:"strategy"`
}

// ChangeDetection is the result of a filter update, synchronize, reset, or
// restore. Subscribers receive exactly this record.
type ChangeDetection struct {
	HasChanges                bool         `json:"has_changes"`
	ChangedFields             []string     `json:"changed_fields,omitempty"`
	Conflicts                 []Conflict   `json:"conflicts,omitempty"`
	RequiresPaginationReset   bool         `json:"requires_pagination_reset"`
	RequiresCacheInvalidation bool         `json:"requires_cache_invalidation"`
	Source                    ChangeSource `json:"source"`
	Timestamp                 time.Time    `json:"timestamp"`
}

// Snapshot is one entry of the filter history: both sources at a point in
// time, tagged with the owning session.
type Snapshot struct {
	Search    SearchFilters    `json:"search"`
	Dashboard DashboardFilters `json:"dashboard"`
	Timestamp time.Time        `json:"timestamp"`
	SessionID string           `json:"session_id,omitempty"`
}
