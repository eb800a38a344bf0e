package bulk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestPredicateMatches(t *testing.T) {
	created := "2025-06-01T12:00:00Z"

	tests := []struct {
		name string
		pred Predicate
		item Item
		want bool
	}{
		{
			name: "empty predicate matches everything",
			item: Item{Name: "anything"},
			want: true,
		},
		{
			name: "name substring is case-insensitive",
			pred: Predicate{NameContains: "weekly"},
			item: Item{Name: "Weekly report"},
			want: true,
		},
		{
			name: "exclude beats unrelated name match",
			pred: Predicate{NameContains: "report", ExcludeStatus: []string{"B"}},
			item: Item{Name: "Weekly report", Status: "B"},
			want: false,
		},
		{
			name: "only-status allow list",
			pred: Predicate{OnlyStatus: []string{"Open", "In Progress"}},
			item: Item{Status: "in progress"},
			want: true,
		},
		{
			name: "status outside allow list",
			pred: Predicate{OnlyStatus: []string{"Open"}},
			item: Item{Status: "done"},
			want: false,
		},
		{
			name: "created-after is inclusive",
			pred: Predicate{CreatedAfter: mustTime(t, created)},
			item: Item{Created: mustTime(t, created)},
			want: true,
		},
		{
			name: "created-before is exclusive",
			pred: Predicate{CreatedBefore: mustTime(t, created)},
			item: Item{Created: mustTime(t, created)},
			want: false,
		},
		{
			name: "missing timestamp fails a constrained range",
			pred: Predicate{DueAfter: mustTime(t, created)},
			item: Item{Name: "no due date"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Matches(tt.item))
		})
	}
}

func TestRunDryRunNeverInvokesAction(t *testing.T) {
	items := []Item{
		{ID: "1", Name: "cleanup me"},
		{ID: "2", Name: "keep"},
		{ID: "3", Name: "cleanup me too"},
	}
	calls := 0
	action := func(context.Context, Item) error { calls++; return nil }

	report := Run(context.Background(), Predicate{NameContains: "cleanup"}, items, action,
		Options{DryRun: true})

	assert.Zero(t, calls, "dry run must not invoke the action")
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Matched)
	assert.Len(t, report.Preview, 2)
	assert.Empty(t, report.Succeeded)
}

func TestRunItemFailureDoesNotAbort(t *testing.T) {
	items := []Item{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	action := func(_ context.Context, it Item) error {
		if it.ID == "2" {
			return errors.New("boom")
		}
		return nil
	}

	report := Run(context.Background(), Predicate{}, items, action, Options{})

	require.Len(t, report.Succeeded, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "2", report.Failed[0].ID)
	assert.Equal(t, "boom", report.Failed[0].Error)
	assert.True(t, report.HasFailures())
}

func TestRunConfirmationGate(t *testing.T) {
	items := []Item{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	var acted int
	action := func(context.Context, Item) error { acted++; return nil }

	t.Run("declining aborts the run", func(t *testing.T) {
		acted = 0
		report := Run(context.Background(), Predicate{}, items, action, Options{
			Gated:            true,
			ConfirmThreshold: 2,
			Confirm:          func(int) bool { return false },
		})
		assert.True(t, report.Aborted)
		assert.Zero(t, acted)
	})

	t.Run("nil confirm declines", func(t *testing.T) {
		acted = 0
		report := Run(context.Background(), Predicate{}, items, action, Options{
			Gated:            true,
			ConfirmThreshold: 2,
		})
		assert.True(t, report.Aborted)
		assert.Zero(t, acted)
	})

	t.Run("auto-confirm skips the prompt", func(t *testing.T) {
		acted = 0
		prompted := false
		report := Run(context.Background(), Predicate{}, items, action, Options{
			Gated:            true,
			ConfirmThreshold: 2,
			AutoConfirm:      true,
			Confirm:          func(int) bool { prompted = true; return false },
		})
		assert.False(t, report.Aborted)
		assert.False(t, prompted)
		assert.Equal(t, 3, acted)
	})

	t.Run("ungated scoped run ignores the threshold", func(t *testing.T) {
		acted = 0
		report := Run(context.Background(), Predicate{}, items, action, Options{
			ConfirmThreshold: 0,
		})
		assert.False(t, report.Aborted)
		assert.Equal(t, 3, acted)
	})

	t.Run("at-threshold count does not prompt", func(t *testing.T) {
		acted = 0
		report := Run(context.Background(), Predicate{}, items, action, Options{
			Gated:            true,
			ConfirmThreshold: 3,
		})
		assert.False(t, report.Aborted)
		assert.Equal(t, 3, acted)
	})
}

func TestBestCompleteStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{
			name:     "exact complete wins",
			statuses: []string{"to do", "Complete", "Done"},
			want:     "Complete",
		},
		{
			name:     "contains complete",
			statuses: []string{"to do", "Completed!", "archived"},
			want:     "Completed!",
		},
		{
			name:     "done fallback",
			statuses: []string{"open", "Done deal"},
			want:     "Done deal",
		},
		{
			name:     "closed fallback",
			statuses: []string{"open", "was closed"},
			want:     "was closed",
		},
		{
			name:     "last status when nothing matches",
			statuses: []string{"alpha", "beta", "omega"},
			want:     "omega",
		},
		{
			name: "literal complete without metadata",
			want: "complete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestCompleteStatus(tt.statuses))
		})
	}
}
