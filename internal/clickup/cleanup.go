package clickup

import (
	"context"
	"errors"

	"github.com/fdtorres1/felix-tools/internal/bulk"
	"github.com/fdtorres1/felix-tools/internal/logging"
)

// CleanupOptions configure a filtered bulk close/archive run.
type CleanupOptions struct {
	// Scope. ListID wins over ListName; a set list scope iterates that list
	// and skips the confirmation gate. With no list scope the run searches
	// team-wide and is gated.
	TeamSpec  string
	SpaceSpec string
	ListID    string
	ListName  string

	// Query is the server-side search string for the team-wide path.
	Query string

	// Predicate is the client-side refinement applied to every candidate.
	Predicate bulk.Predicate

	// TargetStatus overrides the per-list complete-status heuristic.
	TargetStatus string

	// Archive archives matches instead of closing them, falling back to a
	// status transition when the archive call is rejected.
	Archive bool

	DryRun           bool
	AutoConfirm      bool
	ConfirmThreshold int
	Confirm          func(n int) bool

	PageSize int
	All      bool
	Max      int
}

// Cleanup searches for candidate tasks, applies the predicate and performs
// the close/archive action on each survivor. Item failures are recorded in
// the report, not propagated.
func (c *Client) Cleanup(ctx context.Context, opts CleanupOptions) (bulk.Report, error) {
	logger := logging.WithOperation(c.logger, "tasks.cleanup")

	listID := opts.ListID
	if listID == "" && opts.ListName != "" {
		resolved, err := c.ResolveListID(ctx, opts.TeamSpec, opts.SpaceSpec, opts.ListName)
		if err != nil {
			return bulk.Report{}, err
		}
		listID = resolved
	}

	var tasks []Task
	scoped := listID != ""
	if scoped {
		var err error
		tasks, err = c.TasksInList(ctx, listID, opts.PageSize, opts.All, opts.Max)
		if err != nil {
			return bulk.Report{}, err
		}
	} else {
		teamID, err := c.ResolveTeamID(ctx, opts.TeamSpec)
		if err != nil {
			return bulk.Report{}, err
		}
		if teamID == "" {
			return bulk.Report{}, errors.New("team required: pass a team spec or set CLICKUP_DEFAULT_TEAM_ID")
		}
		tasks, err = c.SearchTasks(ctx, teamID, SearchParams{
			Query:    opts.Query,
			OrderBy:  "created",
			Reverse:  true,
			PageSize: opts.PageSize,
		}, opts.All, opts.Max)
		if err != nil {
			return bulk.Report{}, err
		}
	}

	items := make([]bulk.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, bulk.Item{
			ID:      t.ID,
			Name:    t.Name,
			Status:  t.Status.Status,
			Created: t.Created(),
			Due:     t.Due(),
			ListID:  t.List.ID,
		})
	}

	// Target statuses are per list; memoize the metadata lookups.
	statusCache := make(map[string]string)
	targetStatus := func(ctx context.Context, listID string) string {
		if opts.TargetStatus != "" {
			return opts.TargetStatus
		}
		if s, ok := statusCache[listID]; ok {
			return s
		}
		s := c.bestCompleteStatus(ctx, listID)
		statusCache[listID] = s
		return s
	}

	action := func(ctx context.Context, it bulk.Item) error {
		if opts.Archive {
			if err := c.ArchiveTask(ctx, it.ID); err == nil {
				return nil
			}
			// Archive rejected; close by status instead.
		}
		return c.SetTaskStatus(ctx, it.ID, targetStatus(ctx, it.ListID))
	}

	report := bulk.Run(ctx, opts.Predicate, items, action, bulk.Options{
		DryRun:           opts.DryRun,
		Gated:            !scoped,
		ConfirmThreshold: opts.ConfirmThreshold,
		AutoConfirm:      opts.AutoConfirm,
		Confirm:          opts.Confirm,
	})

	logger.Info("cleanup run finished",
		"matched", report.Matched,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"dry_run", report.DryRun,
		"aborted", report.Aborted)
	return report, nil
}

// bestCompleteStatus applies the complete-status heuristic for one list.
// Metadata lookup failures fall back to the literal "complete".
func (c *Client) bestCompleteStatus(ctx context.Context, listID string) string {
	if listID == "" {
		return bulk.BestCompleteStatus(nil)
	}
	names, err := c.ListStatuses(ctx, listID)
	if err != nil {
		c.logger.Warn("failed to load list statuses, falling back",
			"list_id", listID, logging.Err(err))
		return bulk.BestCompleteStatus(nil)
	}
	return bulk.BestCompleteStatus(names)
}

// CloseTask transitions one task to statusName, or to the list's heuristic
// complete status when statusName is empty.
func (c *Client) CloseTask(ctx context.Context, taskID, statusName string) (*Task, error) {
	if statusName == "" {
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		statusName = c.bestCompleteStatus(ctx, task.List.ID)
	}
	if err := c.SetTaskStatus(ctx, taskID, statusName); err != nil {
		return nil, err
	}
	return c.GetTask(ctx, taskID)
}
