package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fdtorres1/felix-tools/internal/logging"
)

const defaultBaseURL = "https://api.clickup.com/api/v2"

// getRetries is the fixed retry budget for read calls. Mutations are never
// retried here; retry-with-backoff for sends lives in the outbox dispatcher.
const getRetries = 2

// Client talks to the ClickUp v2 API.
type Client struct {
	baseURL       string
	token         string
	defaultTeamID string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient returns a ClickUp client authenticated with token. defaultTeamID
// may be empty; it backs team resolution when no team spec is given.
func NewClient(token, defaultTeamID string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("ClickUp API token is not configured; set CLICKUP_API_TOKEN in the agents env file")
	}
	return &Client{
		baseURL:       defaultBaseURL,
		token:         token,
		defaultTeamID: defaultTeamID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logging.WithService(logger, "clickup"),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clickup %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("clickup %s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: snippet}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("clickup %s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

// get performs a read call, retrying rate limits and server errors on a short
// fixed budget.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Transient() {
			c.logger.Debug("retrying transient read failure",
				"path", path, "status_code", apiErr.StatusCode)
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), getRetries), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func notArchived() url.Values {
	return url.Values{"archived": []string{"false"}}
}

// Teams lists the workspaces visible to the token, including members.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var resp struct {
		Teams []Team `json:"teams"`
	}
	if err := c.get(ctx, "/team", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// Spaces lists the non-archived spaces of a team.
func (c *Client) Spaces(ctx context.Context, teamID string) ([]Space, error) {
	var resp struct {
		Spaces []Space `json:"spaces"`
	}
	if err := c.get(ctx, "/team/"+teamID+"/space", notArchived(), &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// ListsInSpace aggregates the lists directly under a space with the lists
// inside each of its folders, annotating every list with the space.
func (c *Client) ListsInSpace(ctx context.Context, space Space) ([]List, error) {
	var out []List

	var direct struct {
		Lists []List `json:"lists"`
	}
	if err := c.get(ctx, "/space/"+space.ID+"/list", notArchived(), &direct); err != nil {
		return nil, err
	}
	out = append(out, direct.Lists...)

	var folders struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.get(ctx, "/space/"+space.ID+"/folder", notArchived(), &folders); err != nil {
		return nil, err
	}
	for _, f := range folders.Folders {
		var inFolder struct {
			Lists []List `json:"lists"`
		}
		if err := c.get(ctx, "/folder/"+f.ID+"/list", notArchived(), &inFolder); err != nil {
			return nil, err
		}
		out = append(out, inFolder.Lists...)
	}

	sp := space
	for i := range out {
		if out[i].Space == nil {
			out[i].Space = &sp
		}
	}
	return out, nil
}

// ListStatuses returns a list's status names in their defined order.
func (c *Client) ListStatuses(ctx context.Context, listID string) ([]string, error) {
	var resp struct {
		Statuses []Status `json:"statuses"`
	}
	if err := c.get(ctx, "/list/"+listID, nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Statuses))
	for _, s := range resp.Statuses {
		if s.Status != "" {
			names = append(names, s.Status)
		}
	}
	return names, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.get(ctx, "/task/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskStatus transitions a task to the given status name.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) error {
	return c.put(ctx, "/task/"+taskID, map[string]any{"status": status}, nil)
}

// ArchiveTask archives a task.
func (c *Client) ArchiveTask(ctx context.Context, taskID string) error {
	return c.put(ctx, "/task/"+taskID, map[string]any{"archived": true}, nil)
}

// CreateTask creates a task in a list.
func (c *Client) CreateTask(ctx context.Context, listID string, body map[string]any) (*Task, error) {
	var task Task
	if err := c.post(ctx, "/list/"+listID+"/task", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, body map[string]any) (*Task, error) {
	var task Task
	if err := c.put(ctx, "/task/"+taskID, body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
