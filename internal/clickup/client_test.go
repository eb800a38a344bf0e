package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("pk_test", "", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	c.baseURL = srv.URL
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("", "", slog.Default())
	assert.Error(t, err)
}

func TestGetSendsAuthHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, map[string]any{"teams": []Team{}})
	}))

	_, err := c.Teams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk_test", gotAuth)
}

func TestGetRetriesRateLimitThenSucceeds(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, map[string]any{"teams": []Team{{ID: "1", Name: "Acme"}}})
	}))

	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, 2, calls)
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"err":"Team not found"}`))
	}))

	_, err := c.Teams(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apiErr.Transient())
	assert.Contains(t, apiErr.Error(), "Team not found")
}

func TestMutationsAreNeverRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.SetTaskStatus(context.Background(), "t1", "complete")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestListsInSpaceAggregatesFolders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/space/sp1/list":
			writeJSON(t, w, map[string]any{"lists": []List{{ID: "l1", Name: "Inbox"}}})
		case "/space/sp1/folder":
			writeJSON(t, w, map[string]any{"folders": []Folder{{ID: "f1", Name: "Projects"}}})
		case "/folder/f1/list":
			writeJSON(t, w, map[string]any{"lists": []List{{ID: "l2", Name: "Roadmap"}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	lists, err := c.ListsInSpace(context.Background(), Space{ID: "sp1", Name: "Ops"})
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "l1", lists[0].ID)
	assert.Equal(t, "l2", lists[1].ID)
	require.NotNil(t, lists[0].Space)
	assert.Equal(t, "Ops", lists[0].Space.Name, "lists are annotated with their space")
}

func TestListStatusesPreservesOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"statuses": []Status{
			{Status: "backlog"}, {Status: "in progress"}, {Status: "complete"},
		}})
	}))

	names, err := c.ListStatuses(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"backlog", "in progress", "complete"}, names)
}

func TestSearchTasksPaginates(t *testing.T) {
	pages := map[string][]Task{
		"0": {{ID: "a"}, {ID: "b"}},
		"1": {{ID: "c"}, {ID: "d"}},
		"2": {{ID: "e"}},
	}
	var queries []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/team/9001/task", r.URL.Path)
		page := r.URL.Query().Get("page")
		queries = append(queries, page)
		writeJSON(t, w, map[string]any{"tasks": pages[page]})
	}))

	tasks, err := c.SearchTasks(context.Background(), "9001",
		SearchParams{PageSize: 2}, true, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	assert.Equal(t, []string{"0", "1", "2"}, queries, "stops after the short page")
	assert.Equal(t, "e", tasks[4].ID)
}

func TestSearchTasksSinglePageWhenNotAll(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, map[string]any{"tasks": []Task{{ID: "a"}, {ID: "b"}}})
	}))

	tasks, err := c.SearchTasks(context.Background(), "9001",
		SearchParams{PageSize: 2}, false, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 1, calls)
}

func TestTaskTimestampParsing(t *testing.T) {
	task := Task{DateCreated: "1750000000000", DueDate: ""}
	assert.False(t, task.Created().IsZero())
	assert.True(t, task.Due().IsZero())

	task = Task{DateCreated: "garbage"}
	assert.True(t, task.Created().IsZero())
}
