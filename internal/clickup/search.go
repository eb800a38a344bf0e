package clickup

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/fdtorres1/felix-tools/internal/paging"
)

// SearchParams are the server-side filters for team-wide task search.
// Client-side refinement on top of these lives in the bulk package.
type SearchParams struct {
	Query         string
	Statuses      []string
	Assignees     []string
	Tags          []string
	IncludeClosed bool
	Archived      bool
	OrderBy       string
	Reverse       bool
	CreatedAfter  time.Time
	CreatedBefore time.Time
	DueAfter      time.Time
	DueBefore     time.Time

	// PageSize is the per-page limit; the API caps it at 100.
	PageSize int
}

func (p SearchParams) values(page int) url.Values {
	q := url.Values{}
	q.Set("archived", strconv.FormatBool(p.Archived))
	q.Set("include_closed", strconv.FormatBool(p.IncludeClosed))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(p.pageSize()))
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
	}
	q.Set("reverse", strconv.FormatBool(p.Reverse))
	if p.Query != "" {
		q.Set("query", p.Query)
	}
	for _, s := range p.Statuses {
		q.Add("statuses[]", s)
	}
	for _, a := range p.Assignees {
		q.Add("assignees[]", a)
	}
	for _, t := range p.Tags {
		q.Add("tags[]", t)
	}
	if !p.CreatedAfter.IsZero() {
		q.Set("date_created_gt", timeToMillis(p.CreatedAfter))
	}
	if !p.CreatedBefore.IsZero() {
		q.Set("date_created_lt", timeToMillis(p.CreatedBefore))
	}
	if !p.DueAfter.IsZero() {
		q.Set("due_date_gt", timeToMillis(p.DueAfter))
	}
	if !p.DueBefore.IsZero() {
		q.Set("due_date_lt", timeToMillis(p.DueBefore))
	}
	return q
}

func (p SearchParams) pageSize() int {
	if p.PageSize <= 0 || p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// pageFetch adapts ClickUp's page-numbered listing to the pager's token
// contract: the token is the page counter, and a page shorter than the
// requested size signals the end.
func pageFetch(pageSize int, fetch func(ctx context.Context, page int) ([]Task, error)) paging.FetchFunc[Task] {
	return func(ctx context.Context, token string) ([]Task, string, error) {
		page := 0
		if token != "" {
			page, _ = strconv.Atoi(token)
		}
		tasks, err := fetch(ctx, page)
		if err != nil {
			return nil, "", err
		}
		if len(tasks) < pageSize {
			return tasks, "", nil
		}
		return tasks, strconv.Itoa(page + 1), nil
	}
}

// SearchTasks drives the team-wide filtered task endpoint. With all=false a
// single page is fetched; otherwise pagination runs to completion, bounded by
// max when positive (the final page is kept whole, not trimmed).
func (c *Client) SearchTasks(ctx context.Context, teamID string, p SearchParams, all bool, max int) ([]Task, error) {
	fetch := func(ctx context.Context, page int) ([]Task, error) {
		var resp struct {
			Tasks []Task `json:"tasks"`
		}
		if err := c.get(ctx, "/team/"+teamID+"/task", p.values(page), &resp); err != nil {
			return nil, err
		}
		return resp.Tasks, nil
	}
	if !all {
		return fetch(ctx, 0)
	}
	return paging.Collect(ctx, pageFetch(p.pageSize(), fetch), max)
}

// TasksInList drives the list-scoped task endpoint with the cleanup
// defaults: open tasks with subtasks, newest first.
func (c *Client) TasksInList(ctx context.Context, listID string, pageSize int, all bool, max int) ([]Task, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	fetch := func(ctx context.Context, page int) ([]Task, error) {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("include_closed", "false")
		q.Set("subtasks", "true")
		q.Set("order_by", "created")
		q.Set("reverse", "true")
		var resp struct {
			Tasks []Task `json:"tasks"`
		}
		if err := c.get(ctx, "/list/"+listID+"/task", q, &resp); err != nil {
			return nil, err
		}
		return resp.Tasks, nil
	}
	if !all {
		return fetch(ctx, 0)
	}
	return paging.Collect(ctx, pageFetch(pageSize, fetch), max)
}
