package ringbuf

import "testing"

func TestPushUnderCapacity(t *testing.T) {
	b := New[int](5)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	got := b.Snapshot()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPushWrapsAround(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	got := b.Snapshot()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLast(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 6; i++ {
		b.Push(i)
	}

	tests := []struct {
		n    int
		want []int
	}{
		{n: 2, want: []int{5, 6}},
		{n: 4, want: []int{3, 4, 5, 6}},
		{n: 10, want: []int{3, 4, 5, 6}},
		{n: 0, want: nil},
		{n: -1, want: nil},
	}
	for _, tt := range tests {
		got := b.Last(tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Last(%d) = %v, want %v", tt.n, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("Last(%d)[%d] = %d, want %d", tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLastSpansWrapBoundary(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	// Buffer now holds 2,3,4,5 with head past the wrap point.
	got := b.Last(3)
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Last(3)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSnapshotEmpty(t *testing.T) {
	b := New[string](3)
	if got := b.Snapshot(); got != nil {
		t.Errorf("Snapshot() on empty buffer = %v, want nil", got)
	}
	if got := b.Last(2); got != nil {
		t.Errorf("Last(2) on empty buffer = %v, want nil", got)
	}
}

func TestClear(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", b.Len())
	}
	if b.Cap() != 3 {
		t.Errorf("Cap() after Clear = %d, want 3", b.Cap())
	}
	b.Push(7)
	got := b.Snapshot()
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("Snapshot() after Clear+Push = %v, want [7]", got)
	}
}

func TestNewPanicsOnNonPositiveCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(0) did not panic")
		}
	}()
	New[int](0)
}
