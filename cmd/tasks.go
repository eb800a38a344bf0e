package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fdtorres1/felix-tools/internal/bulk"
	"github.com/fdtorres1/felix-tools/internal/clickup"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "ClickUp task management",
		Long: `Work with ClickUp teams, spaces, lists and tasks.

Wherever a command takes a team, space, list or user, it accepts a literal
id, an exact name, or a case-insensitive name fragment. Ambiguous fragments
fail with the matching candidates listed so the spec can be narrowed.`,
	}

	cmd.AddCommand(newTasksTeamsCmd())
	cmd.AddCommand(newTasksSpacesCmd())
	cmd.AddCommand(newTasksListsCmd())
	cmd.AddCommand(newTasksStatusesCmd())
	cmd.AddCommand(newTasksUsersCmd())
	cmd.AddCommand(newTasksSearchCmd())
	cmd.AddCommand(newTasksFindCmd())
	cmd.AddCommand(newTasksCreateCmd())
	cmd.AddCommand(newTasksUpdateCmd())
	cmd.AddCommand(newTasksCloseCmd())
	cmd.AddCommand(newTasksCleanupCmd())
	return cmd
}

func newClickUpClient(logger *slog.Logger) (*clickup.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return clickup.NewClient(cfg.ClickUpToken, cfg.ClickUpDefaultTeamID, logger)
}

func newTasksTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List visible teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			teams, err := client.Teams(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"teams": teams})
		},
	}
}

func newTasksSpacesCmd() *cobra.Command {
	var team string

	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List spaces in a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			teamID, err := requireTeam(cmd.Context(), client, team)
			if err != nil {
				return err
			}
			spaces, err := client.Spaces(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"spaces": spaces})
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team id, name or fragment (default: CLICKUP_DEFAULT_TEAM_ID)")
	return cmd
}

func newTasksListsCmd() *cobra.Command {
	var team, space string

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "List lists in a space, folders included",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			teamID, err := requireTeam(cmd.Context(), client, team)
			if err != nil {
				return err
			}
			spaceID, err := client.ResolveSpaceID(cmd.Context(), teamID, space)
			if err != nil {
				return err
			}
			lists, err := client.ListsInSpace(cmd.Context(), clickup.Space{ID: spaceID, Name: space})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"lists": lists})
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team id, name or fragment")
	cmd.Flags().StringVar(&space, "space", "", "Space id, name or fragment")
	cmd.MarkFlagRequired("space")
	return cmd
}

func newTasksStatusesCmd() *cobra.Command {
	var team, space string

	cmd := &cobra.Command{
		Use:   "statuses LIST",
		Short: "Show a list's status scheme in its defined order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			listID, err := client.ResolveListID(cmd.Context(), team, space, args[0])
			if err != nil {
				return err
			}
			statuses, err := client.ListStatuses(cmd.Context(), listID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"list_id": listID, "statuses": statuses})
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team scope for list resolution")
	cmd.Flags().StringVar(&space, "space", "", "Space scope for list resolution")
	return cmd
}

func newTasksUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List members across visible teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			teams, err := client.Teams(cmd.Context())
			if err != nil {
				return err
			}
			type user struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
				Email    string `json:"email"`
				Team     string `json:"team"`
			}
			var users []user
			for _, t := range teams {
				for _, m := range t.Members {
					users = append(users, user{
						ID: m.User.ID, Username: m.User.Username,
						Email: m.User.Email, Team: t.Name,
					})
				}
			}
			return printJSON(map[string]any{"users": users})
		},
	}
}

// searchFlags binds the shared server-side search surface.
type searchFlags struct {
	team          string
	query         string
	statuses      []string
	assignees     []string
	tags          []string
	includeClosed bool
	archived      bool
	orderBy       string
	reverse       bool
	createdAfter  string
	createdBefore string
	dueAfter      string
	dueBefore     string
	limit         int
	all           bool
	max           int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.team, "team", "", "Team id, name or fragment")
	cmd.Flags().StringVar(&f.query, "query", "", "Server-side search string")
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "Status filter, repeatable")
	cmd.Flags().StringSliceVar(&f.assignees, "assignee", nil, "Assignee id, email, username or fragment, repeatable")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag filter, repeatable")
	cmd.Flags().BoolVar(&f.includeClosed, "include-closed", false, "Include closed tasks")
	cmd.Flags().BoolVar(&f.archived, "archived", false, "Search archived tasks")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "created", "Sort key")
	cmd.Flags().BoolVar(&f.reverse, "reverse", true, "Reverse sort order")
	cmd.Flags().StringVar(&f.createdAfter, "created-after", "", "Created >= (ISO 8601)")
	cmd.Flags().StringVar(&f.createdBefore, "created-before", "", "Created < (ISO 8601)")
	cmd.Flags().StringVar(&f.dueAfter, "due-after", "", "Due >= (ISO 8601)")
	cmd.Flags().StringVar(&f.dueBefore, "due-before", "", "Due < (ISO 8601)")
	cmd.Flags().IntVar(&f.limit, "limit", 100, "Page size")
	cmd.Flags().BoolVar(&f.all, "all", false, "Fetch every page")
	cmd.Flags().IntVar(&f.max, "max", 0, "Stop paginating once this many tasks are collected (0 = no cap)")
}

func (f *searchFlags) params(ctx context.Context, client *clickup.Client) (clickup.SearchParams, error) {
	p := clickup.SearchParams{
		Query:         f.query,
		Statuses:      f.statuses,
		Tags:          f.tags,
		IncludeClosed: f.includeClosed,
		Archived:      f.archived,
		OrderBy:       f.orderBy,
		Reverse:       f.reverse,
		PageSize:      f.limit,
	}
	if len(f.assignees) > 0 {
		ids, err := client.ResolveUserIDs(ctx, f.assignees)
		if err != nil {
			return clickup.SearchParams{}, err
		}
		p.Assignees = ids
	}
	var err error
	if p.CreatedAfter, err = parseISOTime(f.createdAfter); err != nil {
		return clickup.SearchParams{}, err
	}
	if p.CreatedBefore, err = parseISOTime(f.createdBefore); err != nil {
		return clickup.SearchParams{}, err
	}
	if p.DueAfter, err = parseISOTime(f.dueAfter); err != nil {
		return clickup.SearchParams{}, err
	}
	if p.DueBefore, err = parseISOTime(f.dueBefore); err != nil {
		return clickup.SearchParams{}, err
	}
	return p, nil
}

func newTasksSearchCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search tasks team-wide with server-side filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			teamID, err := requireTeam(cmd.Context(), client, flags.team)
			if err != nil {
				return err
			}
			params, err := flags.params(cmd.Context(), client)
			if err != nil {
				return err
			}
			tasks, err := client.SearchTasks(cmd.Context(), teamID, params, flags.all, flags.max)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"tasks": tasks})
		},
	}

	flags.register(cmd)
	return cmd
}

func newTasksFindCmd() *cobra.Command {
	var (
		team, space, list string
		nameContains      string
		createdAfter      string
		createdBefore     string
		dueAfter          string
		dueBefore         string
		limit             int
		all               bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Preview tasks matching client-side filters, one JSON line each",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}

			pred := bulk.Predicate{NameContains: nameContains}
			if pred.CreatedAfter, err = parseISOTime(createdAfter); err != nil {
				return err
			}
			if pred.CreatedBefore, err = parseISOTime(createdBefore); err != nil {
				return err
			}
			if pred.DueAfter, err = parseISOTime(dueAfter); err != nil {
				return err
			}
			if pred.DueBefore, err = parseISOTime(dueBefore); err != nil {
				return err
			}

			var tasks []clickup.Task
			if list != "" {
				listID, err := client.ResolveListID(cmd.Context(), team, space, list)
				if err != nil {
					return err
				}
				tasks, err = client.TasksInList(cmd.Context(), listID, limit, all, 0)
				if err != nil {
					return err
				}
			} else {
				teamID, err := requireTeam(cmd.Context(), client, team)
				if err != nil {
					return err
				}
				tasks, err = client.SearchTasks(cmd.Context(), teamID, clickup.SearchParams{
					Query:    nameContains,
					OrderBy:  "created",
					Reverse:  true,
					PageSize: limit,
				}, all, 0)
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			for _, t := range tasks {
				item := bulk.Item{
					ID: t.ID, Name: t.Name, Status: t.Status.Status,
					Created: t.Created(), Due: t.Due(),
				}
				if !pred.Matches(item) {
					continue
				}
				if err := enc.Encode(map[string]any{
					"id": t.ID, "name": t.Name, "status": t.Status.Status,
					"due_date": t.DueDate, "url": t.URL,
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team id, name or fragment")
	cmd.Flags().StringVar(&space, "space", "", "Space scope for list resolution")
	cmd.Flags().StringVar(&list, "list", "", "Restrict to one list (id, name or fragment)")
	cmd.Flags().StringVar(&nameContains, "name-contains", "", "Case-insensitive substring on task name")
	cmd.Flags().StringVar(&createdAfter, "created-after", "", "Created >= (ISO 8601)")
	cmd.Flags().StringVar(&createdBefore, "created-before", "", "Created < (ISO 8601)")
	cmd.Flags().StringVar(&dueAfter, "due-after", "", "Due >= (ISO 8601)")
	cmd.Flags().StringVar(&dueBefore, "due-before", "", "Due < (ISO 8601)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Page size")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")
	cmd.MarkFlagRequired("name-contains")
	return cmd
}

func newTasksCreateCmd() *cobra.Command {
	var (
		team, space, list string
		description       string
		assignees         []string
		due               string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a task in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			listID, err := client.ResolveListID(cmd.Context(), team, space, list)
			if err != nil {
				return err
			}

			body := map[string]any{"name": args[0]}
			if description != "" {
				body["description"] = description
			}
			if due != "" {
				at, err := parseISOTime(due)
				if err != nil {
					return err
				}
				body["due_date"] = at.UnixMilli()
			}
			if len(assignees) > 0 {
				ids, err := client.ResolveUserIDs(cmd.Context(), assignees)
				if err != nil {
					return err
				}
				// The create endpoint wants numeric member ids.
				nums := make([]int64, 0, len(ids))
				for _, id := range ids {
					n, err := strconv.ParseInt(id, 10, 64)
					if err != nil {
						return fmt.Errorf("unexpected non-numeric user id %q", id)
					}
					nums = append(nums, n)
				}
				body["assignees"] = nums
			}

			task, err := client.CreateTask(cmd.Context(), listID, body)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team scope for list resolution")
	cmd.Flags().StringVar(&space, "space", "", "Space scope for list resolution")
	cmd.Flags().StringVar(&list, "list", "", "Target list (id, name or fragment)")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "Assignee id, email, username or fragment, repeatable")
	cmd.Flags().StringVar(&due, "due", "", "Due date (ISO 8601)")
	cmd.MarkFlagRequired("list")
	return cmd
}

func newTasksUpdateCmd() *cobra.Command {
	var (
		name, description, status string
		due                       string
	)

	cmd := &cobra.Command{
		Use:   "update TASK_ID",
		Short: "Apply a partial update to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}

			body := map[string]any{}
			if cmd.Flags().Changed("name") {
				body["name"] = name
			}
			if cmd.Flags().Changed("description") {
				body["description"] = description
			}
			if cmd.Flags().Changed("status") {
				body["status"] = status
			}
			if cmd.Flags().Changed("due") {
				at, err := parseISOTime(due)
				if err != nil {
					return err
				}
				body["due_date"] = at.UnixMilli()
			}
			if len(body) == 0 {
				return fmt.Errorf("nothing to update: pass --name, --description, --status or --due")
			}

			task, err := client.UpdateTask(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Replace the task name")
	cmd.Flags().StringVar(&description, "description", "", "Replace the description")
	cmd.Flags().StringVar(&status, "status", "", "Set the status")
	cmd.Flags().StringVar(&due, "due", "", "Set the due date (ISO 8601)")
	return cmd
}

func newTasksCloseCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "close TASK_ID",
		Short: "Close one task, defaulting to the list's best complete status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}
			task, err := client.CloseTask(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Explicit target status name")
	return cmd
}

func newTasksCleanupCmd() *cobra.Command {
	var (
		team, space, list, listName string
		query                       string
		nameContains                string
		onlyStatus, excludeStatus   []string
		createdAfter, createdBefore string
		dueAfter, dueBefore         string
		status                      string
		archive                     bool
		dryRun, yes                 bool
		confirmThreshold            int
		limit                       int
		all                         bool
		maxTasks                    int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Bulk-close or archive tasks matching filters",
		Long: `Search for tasks, refine the results with client-side filters, and close
or archive every match.

Team-wide runs pause for confirmation once the match count exceeds
--confirm-threshold (pass --yes to skip); runs scoped to one list via
--list/--list-name proceed without the gate. Use --dry-run to preview.
A failed item does not stop the run; per-item outcomes land in the report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClickUpClient(newLogger())
			if err != nil {
				return err
			}

			pred := bulk.Predicate{
				NameContains:  nameContains,
				OnlyStatus:    onlyStatus,
				ExcludeStatus: excludeStatus,
			}
			if pred.CreatedAfter, err = parseISOTime(createdAfter); err != nil {
				return err
			}
			if pred.CreatedBefore, err = parseISOTime(createdBefore); err != nil {
				return err
			}
			if pred.DueAfter, err = parseISOTime(dueAfter); err != nil {
				return err
			}
			if pred.DueBefore, err = parseISOTime(dueBefore); err != nil {
				return err
			}

			report, err := client.Cleanup(cmd.Context(), clickup.CleanupOptions{
				TeamSpec:         team,
				SpaceSpec:        space,
				ListID:           list,
				ListName:         listName,
				Query:            query,
				Predicate:        pred,
				TargetStatus:     status,
				Archive:          archive,
				DryRun:           dryRun,
				AutoConfirm:      yes,
				ConfirmThreshold: confirmThreshold,
				Confirm:          promptConfirm,
				PageSize:         limit,
				All:              all,
				Max:              maxTasks,
			})
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			// Partial item failures still exit zero; the report carries
			// the detail so automation can tell "ran with failures"
			// from "did not run".
			if report.Aborted {
				fmt.Fprintln(os.Stderr, "Aborted.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team id, name or fragment")
	cmd.Flags().StringVar(&space, "space", "", "Space scope for list resolution")
	cmd.Flags().StringVar(&list, "list", "", "Restrict to a list id (skips the confirmation gate)")
	cmd.Flags().StringVar(&listName, "list-name", "", "Restrict to a list name or fragment")
	cmd.Flags().StringVar(&query, "query", "", "Server-side search string for the team-wide path")
	cmd.Flags().StringVar(&nameContains, "name-contains", "", "Case-insensitive substring on task name")
	cmd.Flags().StringSliceVar(&onlyStatus, "only-status", nil, "Act only on these current statuses")
	cmd.Flags().StringSliceVar(&excludeStatus, "exclude-status", nil, "Never act on these current statuses")
	cmd.Flags().StringVar(&createdAfter, "created-after", "", "Created >= (ISO 8601)")
	cmd.Flags().StringVar(&createdBefore, "created-before", "", "Created < (ISO 8601)")
	cmd.Flags().StringVar(&dueAfter, "due-after", "", "Due >= (ISO 8601)")
	cmd.Flags().StringVar(&dueBefore, "due-before", "", "Due < (ISO 8601)")
	cmd.Flags().StringVar(&status, "status", "", "Explicit target status (default: per-list heuristic)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive instead of closing by status")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview matches without acting")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().IntVar(&confirmThreshold, "confirm-threshold", 20, "Prompt when a team-wide run matches more than this many tasks")
	cmd.Flags().IntVar(&limit, "limit", 100, "Page size")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")
	cmd.Flags().IntVar(&maxTasks, "max", 0, "Stop paginating once this many tasks are collected (0 = no cap)")
	return cmd
}

// requireTeam resolves a team spec and fails with guidance when neither a
// spec nor a configured default exists.
func requireTeam(ctx context.Context, client *clickup.Client, spec string) (string, error) {
	teamID, err := client.ResolveTeamID(ctx, spec)
	if err != nil {
		return "", err
	}
	if teamID == "" {
		return "", fmt.Errorf("team required: pass --team or set CLICKUP_DEFAULT_TEAM_ID")
	}
	return strings.TrimSpace(teamID), nil
}
