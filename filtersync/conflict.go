package filtersync

// The search bar and the dashboard grew separate sort vocabularies. Conflict
// detection compares values after mapping the search vocabulary onto the
// dashboard's; resolution writes the winner back in the loser's vocabulary.

// normalizeSort maps a search-side sort value onto the dashboard
// vocabulary. Unknown values pass through unchanged.
func normalizeSort(v string) string {
	switch v {
	case "recent", "relevance":
		return "newest"
	case "likes":
		return "popular"
	default:
		return v
	}
}

// denormalizeSort maps a dashboard sort value onto the search vocabulary.
func denormalizeSort(v string) string {
	if v == "newest" {
		return "recent"
	}
	return v
}

// fieldPair is one comparable field across the two sources, with the search
// value already normalized.
type fieldPair struct {
	field        string
	searchValue  string // normalized; "" when unset
	searchRaw    string // as stored on the search side
	dashboard    string
	defaultValue string
}

func comparableFields(search SearchFilters, dashboard DashboardFilters) []fieldPair {
	return []fieldPair{
		{
			field:        FieldPostType,
			searchValue:  search.PostType,
			searchRaw:    search.PostType,
			dashboard:    dashboard.PostType,
			defaultValue: DefaultPostType,
		},
		{
			field:        FieldSortBy,
			searchValue:  normalizeSort(search.SortBy),
			searchRaw:    search.SortBy,
			dashboard:    dashboard.SortBy,
			defaultValue: DefaultSortBy,
		},
		{
			field:        FieldTimeRange,
			searchValue:  search.TimeRange,
			searchRaw:    search.TimeRange,
			dashboard:    dashboard.TimeRange,
			defaultValue: DefaultTimeRange,
		},
	}
}

// detectConflicts reports every field where both sources hold non-default
// values that disagree after normalization.
func detectConflicts(search SearchFilters, dashboard DashboardFilters, strategy Strategy) []Conflict {
	var conflicts []Conflict
	for _, pair := range comparableFields(search, dashboard) {
		searchActive := pair.searchValue != "" && pair.searchValue != pair.defaultValue
		dashboardActive := pair.dashboard != pair.defaultValue
		if !searchActive || !dashboardActive || pair.searchValue == pair.dashboard {
			continue
		}

		resolved := pair.searchValue
		if strategy == StrategyDashboardPriority {
			resolved = pair.dashboard
		}
		conflicts = append(conflicts, Conflict{
			Field:          pair.field,
			SearchValue:    pair.searchRaw,
			DashboardValue: pair.dashboard,
			ResolvedValue:  resolved,
			Strategy:       strategy,
		})
	}
	return conflicts
}

// applyResolution overwrites the losing side of each conflict with the
// winner's value so subsequent reads agree. The resolved value is mapped
// into the loser's vocabulary before writing.
func applyResolution(search *SearchFilters, dashboard *DashboardFilters, conflicts []Conflict) {
	for _, c := range conflicts {
		switch c.Strategy {
		case StrategyDashboardPriority:
			value := c.ResolvedValue
			if c.Field == FieldSortBy {
				value = denormalizeSort(value)
			}
			setSearchField(search, c.Field, value)
		default: // search priority
			setDashboardField(dashboard, c.Field, c.ResolvedValue)
		}
	}
}

func setSearchField(f *SearchFilters, field, value string) {
	switch field {
	case FieldPostType:
		f.PostType = value
	case FieldSortBy:
		f.SortBy = value
	case FieldTimeRange:
		f.TimeRange = value
	}
}

func setDashboardField(f *DashboardFilters, field, value string) {
	switch field {
	case FieldPostType:
		f.PostType = value
	case FieldSortBy:
		f.SortBy = value
	case FieldTimeRange:
		f.TimeRange = value
	}
}

// resolveEffective applies the priority rule field by field: a side's value
// only wins while it deviates from the default, so a lone active side
// always shows through regardless of strategy.
func resolveEffective(search SearchFilters, dashboard DashboardFilters, strategy Strategy) EffectiveFilters {
	effective := EffectiveFilters{Query: search.Query}

	for _, pair := range comparableFields(search, dashboard) {
		searchActive := pair.searchValue != "" && pair.searchValue != pair.defaultValue
		dashboardActive := pair.dashboard != pair.defaultValue

		value := pair.defaultValue
		switch {
		case searchActive && dashboardActive:
			if strategy == StrategyDashboardPriority {
				value = pair.dashboard
			} else {
				value = pair.searchValue
			}
		case searchActive:
			value = pair.searchValue
		case dashboardActive:
			value = pair.dashboard
		}

		switch pair.field {
		case FieldPostType:
			effective.PostType = value
		case FieldSortBy:
			effective.SortBy = value
		case FieldTimeRange:
			effective.TimeRange = value
		}
	}

	return effective
}
