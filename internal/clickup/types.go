package clickup

import (
	"fmt"
	"strconv"
	"time"
)

// Team is a ClickUp workspace.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members,omitempty"`
}

// Member wraps a user's team membership.
type Member struct {
	User User `json:"user"`
}

// User is a workspace member.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Space is a ClickUp space inside a team.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Folder groups lists inside a space.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is a ClickUp list. Space is populated by aggregation helpers so
// ambiguity reports can show where each candidate lives.
type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Space *Space `json:"space,omitempty"`
}

// Status is one entry of a list's ordered status scheme.
type Status struct {
	Status     string `json:"status"`
	Type       string `json:"type,omitempty"`
	OrderIndex int    `json:"orderindex,omitempty"`
}

// TaskStatus is the status object embedded in a task.
type TaskStatus struct {
	Status string `json:"status"`
}

// TaskList is the owning-list stub embedded in a task.
type TaskList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a ClickUp task. Timestamps arrive as epoch-millisecond strings.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	DateCreated string     `json:"date_created"`
	DueDate     string     `json:"due_date"`
	List        TaskList   `json:"list"`
	URL         string     `json:"url,omitempty"`
}

// Created returns the creation time, or the zero time when unset.
func (t Task) Created() time.Time { return millisToTime(t.DateCreated) }

// Due returns the due time, or the zero time when unset.
func (t Task) Due() time.Time { return millisToTime(t.DueDate) }

func millisToTime(ms string) time.Time {
	if ms == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

func timeToMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// APIError is a non-2xx response from the ClickUp API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Method and Path identify the failed call.
	Method string
	Path   string

	// Body is a truncated copy of the response body.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clickup %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Transient reports whether the failure is a rate limit or server-side error
// worth retrying on read paths.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
