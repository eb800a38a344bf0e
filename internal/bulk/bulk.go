package bulk

import (
	"context"
	"strings"
	"time"
)

// Item is one candidate flowing through the engine.
type Item struct {
	ID      string
	Name    string
	Status  string
	Created time.Time // zero when the source did not report it
	Due     time.Time // zero when the source did not report it
	ListID  string    // owning list, used for status metadata lookups
}

// Predicate is an ordered conjunction of optional conditions. A zero-valued
// field means "no constraint". Time ranges are half-open: >= After, < Before.
type Predicate struct {
	NameContains  string
	OnlyStatus    []string
	ExcludeStatus []string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	DueAfter      time.Time
	DueBefore     time.Time
}

// Matches reports whether it satisfies every set condition. An item with no
// timestamp fails any constrained time range.
func (p Predicate) Matches(it Item) bool {
	if p.NameContains != "" &&
		!strings.Contains(strings.ToLower(it.Name), strings.ToLower(p.NameContains)) {
		return false
	}
	status := strings.ToLower(it.Status)
	if len(p.OnlyStatus) > 0 && !containsFold(p.OnlyStatus, status) {
		return false
	}
	if len(p.ExcludeStatus) > 0 && containsFold(p.ExcludeStatus, status) {
		return false
	}
	if !p.CreatedAfter.IsZero() && (it.Created.IsZero() || it.Created.Before(p.CreatedAfter)) {
		return false
	}
	if !p.CreatedBefore.IsZero() && (it.Created.IsZero() || !it.Created.Before(p.CreatedBefore)) {
		return false
	}
	if !p.DueAfter.IsZero() && (it.Due.IsZero() || it.Due.Before(p.DueAfter)) {
		return false
	}
	if !p.DueBefore.IsZero() && (it.Due.IsZero() || !it.Due.Before(p.DueBefore)) {
		return false
	}
	return true
}

func containsFold(haystack []string, lowered string) bool {
	for _, s := range haystack {
		if strings.ToLower(s) == lowered {
			return true
		}
	}
	return false
}

// Action mutates a single matched item.
type Action func(ctx context.Context, it Item) error

// Outcome records what happened to one matched item.
type Outcome struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Report summarizes a run. Preview is populated on dry runs, Succeeded and
// Failed on live runs. Aborted is set when the confirmation gate declined.
type Report struct {
	DryRun    bool      `json:"dry_run"`
	Aborted   bool      `json:"aborted,omitempty"`
	Matched   int       `json:"matched"`
	Preview   []Outcome `json:"preview,omitempty"`
	Succeeded []Outcome `json:"succeeded,omitempty"`
	Failed    []Outcome `json:"failed,omitempty"`
}

// HasFailures reports whether any live action failed.
func (r Report) HasFailures() bool { return len(r.Failed) > 0 }

// Options control gating and side effects of a run.
type Options struct {
	// DryRun previews matches without invoking the action.
	DryRun bool

	// Gated enables the confirmation threshold. Only the unscoped
	// (team-wide) search path sets this; list-scoped runs do not.
	Gated bool

	// ConfirmThreshold is the matched-count above which a gated live run
	// pauses for confirmation.
	ConfirmThreshold int

	// AutoConfirm skips the prompt (the --yes flag).
	AutoConfirm bool

	// Confirm asks the operator whether to proceed with n mutations.
	// A nil Confirm declines.
	Confirm func(n int) bool
}

// Run evaluates pred over items in source order and applies action to each
// match. Item failures are isolated: they are recorded in the report and the
// run continues with the next item.
func Run(ctx context.Context, pred Predicate, items []Item, action Action, opts Options) Report {
	report := Report{DryRun: opts.DryRun}

	var matched []Item
	for _, it := range items {
		if pred.Matches(it) {
			matched = append(matched, it)
		}
	}
	report.Matched = len(matched)

	if opts.DryRun {
		for _, it := range matched {
			report.Preview = append(report.Preview, Outcome{ID: it.ID, Name: it.Name})
		}
		return report
	}

	if opts.Gated && len(matched) > opts.ConfirmThreshold && !opts.AutoConfirm {
		if opts.Confirm == nil || !opts.Confirm(len(matched)) {
			report.Aborted = true
			return report
		}
	}

	for _, it := range matched {
		if err := action(ctx, it); err != nil {
			report.Failed = append(report.Failed, Outcome{ID: it.ID, Name: it.Name, Error: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, Outcome{ID: it.ID, Name: it.Name})
	}
	return report
}

// completeKeys are probed in order by BestCompleteStatus.
var completeKeys = []string{"complete", "completed", "done", "closed", "close"}

// BestCompleteStatus picks the status name a "close" action should target when
// none was supplied: an exact case-insensitive "complete" first, then the
// first status containing one of the usual closing words, then the last
// status in the list's defined order, then the literal "complete" when no
// status metadata exists at all.
func BestCompleteStatus(statuses []string) string {
	for _, s := range statuses {
		if strings.EqualFold(s, "complete") {
			return s
		}
	}
	for _, key := range completeKeys {
		for _, s := range statuses {
			if strings.Contains(strings.ToLower(s), key) {
				return s
			}
		}
	}
	if len(statuses) > 0 {
		return statuses[len(statuses)-1]
	}
	return "complete"
}
