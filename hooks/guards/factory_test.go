package guards

import (
	"context"
	"testing"
	"time"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

func TestNewGuardHook_PageSize(t *testing.T) {
	h, err := NewGuardHook("page_size", map[string]any{
		"max_limit":   float64(50), // JSON numbers arrive as float64
		"max_records": 200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ps, ok := h.(*PageSizeHook)
	if !ok {
		t.Fatalf("expected *PageSizeHook, got %T", h)
	}
	if ps.maxLimit != 50 || ps.maxRecords != 200 {
		t.Errorf("unexpected limits: %d, %d", ps.maxLimit, ps.maxRecords)
	}
}

func TestNewGuardHook_RateWindow(t *testing.T) {
	h, err := NewGuardHook("rate_window", map[string]any{
		"max_fetches": 10,
		"window":      "30s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rw, ok := h.(*RateWindowHook)
	if !ok {
		t.Fatalf("expected *RateWindowHook, got %T", h)
	}
	if rw.maxFetches != 10 || rw.window != 30*time.Second {
		t.Errorf("unexpected config: %d, %s", rw.maxFetches, rw.window)
	}
}

func TestNewGuardHook_RateWindowDefaultWindow(t *testing.T) {
	h, err := NewGuardHook("rate_window", map[string]any{
		"max_fetches": 10,
		"window":      "not-a-duration",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rw := h.(*RateWindowHook)
	if rw.window != defaultRateWindow {
		t.Errorf("expected default window, got %s", rw.window)
	}
}

func TestNewGuardHook_RequiredFilters(t *testing.T) {
	h, err := NewGuardHook("required_filters", map[string]any{
		"required_filters": []any{"tenant", "locale", 42},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := h.BeforeFetch(context.Background(), &hooks.FetchRequest{
		Filters: map[string]string{"tenant": "acme", "locale": "en-US"},
	})
	if !d.Allow {
		t.Errorf("expected non-string entries skipped, got deny: %s", d.Reason)
	}

	d = h.BeforeFetch(context.Background(), &hooks.FetchRequest{
		Filters: map[string]string{"tenant": "acme"},
	})
	if d.Allow {
		t.Error("expected missing locale to deny")
	}
}

func TestNewGuardHook_UnknownType(t *testing.T) {
	_, err := NewGuardHook("nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for unknown guard type")
	}
}
