package filtersync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSync(t *testing.T, opts ...Option) *Synchronizer {
	t.Helper()
	s, err := NewSynchronizer(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSynchronizer_RejectsMergeStrategy(t *testing.T) {
	_, err := NewSynchronizer(WithStrategy(StrategyMerge))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)

	_, err = NewSynchronizer(WithStrategy(Strategy("made-up")))
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestSynchronizer_InitialState(t *testing.T) {
	s := newTestSync(t)

	state := s.CurrentState()
	assert.Equal(t, SearchFilters{}, state.Search)
	assert.Equal(t, DefaultDashboardFilters(), state.Dashboard)
	assert.Equal(t, DefaultPostType, state.Effective.PostType)
	assert.Equal(t, DefaultSortBy, state.Effective.SortBy)
	assert.Equal(t, DefaultTimeRange, state.Effective.TimeRange)
	assert.False(t, s.HasActiveFilters())
}

func TestUpdateSearchFilters(t *testing.T) {
	t.Run("accepted change sets the hard pagination reset rule", func(t *testing.T) {
		s := newTestSync(t)

		detection := s.UpdateSearchFilters(SearchFilters{PostType: "audio"})
		assert.True(t, detection.HasChanges)
		assert.Equal(t, []string{FieldPostType}, detection.ChangedFields)
		assert.True(t, detection.RequiresPaginationReset)
		assert.False(t, detection.RequiresCacheInvalidation)
		assert.Equal(t, SourceSearch, detection.Source)
	})

	t.Run("query change additionally invalidates the cache", func(t *testing.T) {
		s := newTestSync(t)

		detection := s.UpdateSearchFilters(SearchFilters{Query: "synthwave"})
		assert.True(t, detection.RequiresPaginationReset)
		assert.True(t, detection.RequiresCacheInvalidation)

		// A follow-up change that keeps the query does not invalidate.
		detection = s.UpdateSearchFilters(SearchFilters{Query: "synthwave", PostType: "audio"})
		assert.True(t, detection.HasChanges)
		assert.Equal(t, []string{FieldPostType}, detection.ChangedFields)
		assert.True(t, detection.RequiresPaginationReset)
		assert.False(t, detection.RequiresCacheInvalidation)
	})

	t.Run("identical update is a no-op", func(t *testing.T) {
		s := newTestSync(t)

		filters := SearchFilters{PostType: "audio", SortBy: "likes"}
		first := s.UpdateSearchFilters(filters)
		require.True(t, first.HasChanges)

		second := s.UpdateSearchFilters(filters)
		assert.False(t, second.HasChanges)
		assert.Empty(t, second.ChangedFields)
		assert.False(t, second.RequiresPaginationReset)
	})

	t.Run("effective filters follow the search side", func(t *testing.T) {
		s := newTestSync(t)
		s.UpdateSearchFilters(SearchFilters{PostType: "audio"})

		effective := s.EffectiveFilters()
		assert.Equal(t, "audio", effective.PostType)
		assert.Equal(t, DefaultSortBy, effective.SortBy)
		assert.Equal(t, DefaultTimeRange, effective.TimeRange)
	})
}

func TestUpdateDashboardFilters(t *testing.T) {
	t.Run("identical update is a no-op", func(t *testing.T) {
		s := newTestSync(t)

		filters := DashboardFilters{PostType: "video", SortBy: DefaultSortBy, TimeRange: DefaultTimeRange}
		require.True(t, s.UpdateDashboardFilters(filters).HasChanges)
		assert.False(t, s.UpdateDashboardFilters(filters).HasChanges)
	})

	t.Run("zero fields are filled with defaults", func(t *testing.T) {
		s := newTestSync(t)

		detection := s.UpdateDashboardFilters(DashboardFilters{PostType: "video"})
		assert.Equal(t, []string{FieldPostType}, detection.ChangedFields)

		state := s.CurrentState()
		assert.Equal(t, "video", state.Dashboard.PostType)
		assert.Equal(t, DefaultSortBy, state.Dashboard.SortBy)
		assert.Equal(t, DefaultTimeRange, state.Dashboard.TimeRange)
	})

	t.Run("never sets cache invalidation", func(t *testing.T) {
		s := newTestSync(t)

		detection := s.UpdateDashboardFilters(DashboardFilters{SortBy: "oldest"})
		assert.True(t, detection.RequiresPaginationReset)
		assert.False(t, detection.RequiresCacheInvalidation)
	})
}

func TestConflictResolutionOnUpdate(t *testing.T) {
	t.Run("search priority keeps the search value", func(t *testing.T) {
		s := newTestSync(t)
		s.UpdateSearchFilters(SearchFilters{PostType: "audio"})

		detection := s.UpdateDashboardFilters(DashboardFilters{PostType: "video"})
		require.Len(t, detection.Conflicts, 1)
		assert.Equal(t, "audio", detection.Conflicts[0].ResolvedValue)

		// The losing dashboard value was overwritten.
		state := s.CurrentState()
		assert.Equal(t, "audio", state.Dashboard.PostType)
		assert.Equal(t, "audio", s.EffectiveFilters().PostType)
	})

	t.Run("dashboard priority keeps the dashboard value", func(t *testing.T) {
		s := newTestSync(t, WithStrategy(StrategyDashboardPriority))
		s.UpdateSearchFilters(SearchFilters{PostType: "audio"})

		detection := s.UpdateDashboardFilters(DashboardFilters{PostType: "video"})
		require.Len(t, detection.Conflicts, 1)
		assert.Equal(t, "video", detection.Conflicts[0].ResolvedValue)

		state := s.CurrentState()
		assert.Equal(t, "video", state.Search.PostType)
		assert.Equal(t, "video", s.EffectiveFilters().PostType)
	})
}

func TestSynchronize(t *testing.T) {
	t.Run("consistent state reports no changes", func(t *testing.T) {
		s := newTestSync(t)
		detection := s.Synchronize()
		assert.False(t, detection.HasChanges)
		assert.False(t, detection.RequiresPaginationReset)
		assert.Equal(t, SourceSync, detection.Source)
	})

	t.Run("latent conflict is resolved and notified immediately", func(t *testing.T) {
		s := newTestSync(t, WithDebounce(time.Hour))
		s.search.PostType = "audio"
		s.dashboard.PostType = "video"

		notified := make(chan ChangeDetection, 1)
		s.Subscribe(func(d ChangeDetection) { notified <- d })

		detection := s.Synchronize()
		require.True(t, detection.HasChanges)
		require.Len(t, detection.Conflicts, 1)
		assert.True(t, detection.RequiresPaginationReset)
		assert.Equal(t, "audio", s.EffectiveFilters().PostType)
		assert.Equal(t, "audio", s.CurrentState().Dashboard.PostType)

		select {
		case d := <-notified:
			assert.Equal(t, SourceSync, d.Source)
		case <-time.After(2 * time.Second):
			t.Fatal("synchronize must notify immediately, not debounced")
		}
	})
}

func TestReset(t *testing.T) {
	s := newTestSync(t, WithDebounce(time.Hour))
	s.UpdateSearchFilters(SearchFilters{Query: "lofi", PostType: "audio"})
	s.UpdateDashboardFilters(DashboardFilters{SortBy: "oldest"})

	notified := make(chan ChangeDetection, 1)
	s.Subscribe(func(d ChangeDetection) { notified <- d })

	detection := s.Reset()
	assert.True(t, detection.HasChanges)
	assert.True(t, detection.RequiresPaginationReset)
	assert.True(t, detection.RequiresCacheInvalidation)
	assert.Equal(t, SourceReset, detection.Source)

	state := s.CurrentState()
	assert.Equal(t, SearchFilters{}, state.Search)
	assert.Equal(t, DefaultDashboardFilters(), state.Dashboard)
	assert.False(t, s.HasActiveFilters())

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("reset must notify immediately")
	}
}

func TestHasActiveFilters(t *testing.T) {
	s := newTestSync(t)
	assert.False(t, s.HasActiveFilters())

	s.UpdateSearchFilters(SearchFilters{Query: "   "})
	assert.False(t, s.HasActiveFilters(), "whitespace query is not active")

	s.UpdateSearchFilters(SearchFilters{Query: "lofi"})
	assert.True(t, s.HasActiveFilters())

	s.Reset()
	s.UpdateDashboardFilters(DashboardFilters{TimeRange: "week"})
	assert.True(t, s.HasActiveFilters())
}

func TestDebounceCoalescing(t *testing.T) {
	s := newTestSync(t, WithDebounce(20*time.Millisecond))

	notified := make(chan ChangeDetection, 8)
	s.Subscribe(func(d ChangeDetection) { notified <- d })

	// Three rapid updates inside the window; only the last one's detection
	// may be delivered.
	s.UpdateSearchFilters(SearchFilters{Query: "a"})
	s.UpdateSearchFilters(SearchFilters{Query: "a", PostType: "audio"})
	s.UpdateSearchFilters(SearchFilters{Query: "a", PostType: "audio", TimeRange: "week"})

	select {
	case d := <-notified:
		assert.Equal(t, []string{FieldTimeRange}, d.ChangedFields)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced notification never arrived")
	}

	select {
	case d := <-notified:
		t.Fatalf("expected a single coalesced notification, got another: %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriberPanicIsolation(t *testing.T) {
	s := newTestSync(t)

	s.Subscribe(func(ChangeDetection) { panic("subscriber bug") })
	notified := make(chan ChangeDetection, 1)
	s.Subscribe(func(d ChangeDetection) { notified <- d })

	s.Reset()

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking subscriber blocked delivery to the rest")
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newTestSync(t)

	notified := make(chan ChangeDetection, 1)
	unsubscribe := s.Subscribe(func(d ChangeDetection) { notified <- d })
	unsubscribe()

	s.Reset()

	select {
	case <-notified:
		t.Fatal("unsubscribed listener must not be notified")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFilterHistory(t *testing.T) {
	t.Run("accepted updates append snapshots", func(t *testing.T) {
		s := newTestSync(t, WithSessionID("session-7"))

		s.UpdateSearchFilters(SearchFilters{PostType: "audio"})
		s.UpdateSearchFilters(SearchFilters{PostType: "audio", Query: "lofi"})
		s.UpdateSearchFilters(SearchFilters{PostType: "audio", Query: "lofi"}) // no-op

		history := s.FilterHistory()
		require.Len(t, history, 2)
		assert.Equal(t, "audio", history[0].Search.PostType)
		assert.Empty(t, history[0].Search.Query)
		assert.Equal(t, "lofi", history[1].Search.Query)
		assert.Equal(t, "session-7", history[0].SessionID)
	})

	t.Run("history is bounded", func(t *testing.T) {
		s := newTestSync(t, WithHistoryCap(3))

		queries := []string{"a", "b", "c", "d", "e"}
		for _, q := range queries {
			s.UpdateSearchFilters(SearchFilters{Query: q})
		}

		history := s.FilterHistory()
		require.Len(t, history, 3)
		assert.Equal(t, "c", history[0].Search.Query)
		assert.Equal(t, "e", history[2].Search.Query)
	})
}

func TestRestoreFromHistory(t *testing.T) {
	t.Run("restores a fresh snapshot by index", func(t *testing.T) {
		s := newTestSync(t)
		s.UpdateSearchFilters(SearchFilters{PostType: "audio"})
		s.UpdateSearchFilters(SearchFilters{PostType: "audio", Query: "lofi"})

		require.True(t, s.RestoreFromHistory(0))

		state := s.CurrentState()
		assert.Equal(t, "audio", state.Search.PostType)
		assert.Empty(t, state.Search.Query)
	})

	t.Run("rejects out-of-range indexes", func(t *testing.T) {
		s := newTestSync(t)
		s.UpdateSearchFilters(SearchFilters{Query: "lofi"})

		assert.False(t, s.RestoreFromHistory(-1))
		assert.False(t, s.RestoreFromHistory(5))
	})

	t.Run("rejects snapshots past the staleness window", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s := newTestSync(t, WithTimeFunc(func() time.Time { return now }))
		s.UpdateSearchFilters(SearchFilters{Query: "lofi"})

		now = now.Add(2 * time.Hour)
		assert.False(t, s.RestoreFromHistory(0))
	})
}

func TestClose(t *testing.T) {
	s := newTestSync(t, WithDebounce(10*time.Millisecond))

	notified := make(chan ChangeDetection, 1)
	s.Subscribe(func(d ChangeDetection) { notified <- d })

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// Updates still apply after close, but no notification fires.
	detection := s.UpdateSearchFilters(SearchFilters{Query: "lofi"})
	assert.True(t, detection.HasChanges)
	assert.Equal(t, "lofi", s.CurrentState().Search.Query)

	select {
	case <-notified:
		t.Fatal("closed synchronizer must not notify")
	case <-time.After(100 * time.Millisecond):
	}
}
