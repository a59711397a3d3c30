package guards

import (
	"context"
	"testing"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

func TestPageSizeHook_BeforeFetch(t *testing.T) {
	tests := []struct {
		name     string
		maxLimit int
		limit    int
		allow    bool
	}{
		{"under limit", 50, 20, true},
		{"at limit", 50, 50, true},
		{"over limit", 50, 51, false},
		{"disabled", 0, 10000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPageSizeHook(tt.maxLimit, 0)
			d := h.BeforeFetch(context.Background(), &hooks.FetchRequest{Limit: tt.limit})
			if d.Allow != tt.allow {
				t.Errorf("Allow = %v, want %v", d.Allow, tt.allow)
			}
		})
	}
}

func TestPageSizeHook_AfterFetch(t *testing.T) {
	h := NewPageSizeHook(0, 100)

	d := h.AfterFetch(context.Background(), &hooks.FetchRequest{}, &hooks.FetchResponse{Records: 100})
	if !d.Allow {
		t.Error("record count at limit should be allowed")
	}

	d = h.AfterFetch(context.Background(), &hooks.FetchRequest{}, &hooks.FetchResponse{Records: 101})
	if d.Allow {
		t.Fatal("record count over limit should be denied")
	}
	if d.Metadata["guard_type"] != namePageSize {
		t.Errorf("expected guard_type metadata, got %v", d.Metadata)
	}
	if d.Metadata["record_count"] != 101 {
		t.Errorf("expected record_count 101, got %v", d.Metadata["record_count"])
	}
}

func TestPageSizeHook_Name(t *testing.T) {
	if NewPageSizeHook(1, 1).Name() != "page_size" {
		t.Error("unexpected hook name")
	}
}
