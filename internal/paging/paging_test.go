package paging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
)

// pagedSource splits n sequential ints into pages of size k.
func pagedSource(n, k int) FetchFunc[int] {
	return func(_ context.Context, token string) ([]int, string, error) {
		start := 0
		if token != "" {
			start, _ = strconv.Atoi(token)
		}
		end := start + k
		if end > n {
			end = n
		}
		var items []int
		for i := start; i < end; i++ {
			items = append(items, i)
		}
		if end >= n {
			return items, "", nil
		}
		return items, strconv.Itoa(end), nil
	}
}

func TestCollectAllPages(t *testing.T) {
	tests := []struct {
		n, k int
	}{
		{n: 0, k: 10},
		{n: 7, k: 10},
		{n: 10, k: 10},
		{n: 25, k: 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d k=%d", tt.n, tt.k), func(t *testing.T) {
			got, err := Collect(context.Background(), pagedSource(tt.n, tt.k), 0)
			if err != nil {
				t.Fatalf("Collect() unexpected error: %v", err)
			}
			if len(got) != tt.n {
				t.Fatalf("Collect() returned %d items, want %d", len(got), tt.n)
			}
			for i, v := range got {
				if v != i {
					t.Fatalf("item %d = %d, want %d (order broken)", i, v, i)
				}
			}
		})
	}
}

func TestCollectLimitStopsEarlyWithoutTrimming(t *testing.T) {
	got, err := Collect(context.Background(), pagedSource(100, 10), 15)
	if err != nil {
		t.Fatalf("Collect() unexpected error: %v", err)
	}
	// Limit 15 falls mid-page: the second page is kept whole.
	if len(got) != 20 {
		t.Fatalf("Collect() returned %d items, want 20 (limit reached mid-page)", len(got))
	}
	seen := make(map[int]bool)
	for _, v := range got {
		if seen[v] {
			t.Fatalf("item %d duplicated", v)
		}
		seen[v] = true
	}
}

func TestCollectPropagatesFetchError(t *testing.T) {
	boom := errors.New("page 2 unavailable")
	calls := 0
	fetch := func(_ context.Context, token string) ([]int, string, error) {
		calls++
		if token != "" {
			return nil, "", boom
		}
		return []int{1, 2, 3}, "next", nil
	}

	_, err := Collect(context.Background(), fetch, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("Collect() error = %v, want %v", err, boom)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 (no retry on failure)", calls)
	}
}
