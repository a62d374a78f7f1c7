package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/models"
	"planner/internal/remote"
	"planner/internal/schedule"
)

type memCache struct {
	mu     sync.Mutex
	tasks  []models.Task
	status models.CompletionStatus
}

func (m *memCache) LoadTasks(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks, nil
}

func (m *memCache) SaveTasks(ctx context.Context, tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = tasks
	return nil
}

func (m *memCache) LoadCompletion(ctx context.Context) (models.CompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *memCache) SaveCompletion(ctx context.Context, status models.CompletionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	return nil
}

func newTestServer(t *testing.T, signedIn bool) (*Server, *schedule.Repository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := schedule.NewRepository(&memCache{}, remote.NewMemory(), logger)
	if signedIn {
		require.NoError(t, repo.SetIdentity(context.Background(), "user-1"))
		t.Cleanup(repo.Close)
	}
	return New(repo, logger, ""), repo
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func addGym(t *testing.T, srv *Server) models.Task {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title": "Gym", "time": "07:30", "kind": "days",
		"days": []string{"Mon", "Wed"}, "importance": 0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &resp)
	return resp.Task
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := doJSON(t, srv, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddTask_ValidationIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title": "", "time": "07:30", "kind": "days", "days": []string{"Mon"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title": "Gym", "time": "07:30", "kind": "days",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title": "Doctor", "time": "09:00", "kind": "date",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeekView_ContainsCreatedTask(t *testing.T) {
	srv, _ := newTestServer(t, false)
	addGym(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/week?anchor=2024-06-13", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Days []struct {
			Date    string        `json:"date"`
			Weekday string        `json:"weekday"`
			Tasks   []models.Task `json:"tasks"`
		} `json:"days"`
	}
	decode(t, rec, &resp)

	require.Len(t, resp.Days, 7)
	assert.Equal(t, "2024-06-10", resp.Days[0].Date)
	assert.Equal(t, "Mon", resp.Days[0].Weekday)
	assert.Equal(t, "2024-06-16", resp.Days[6].Date)

	require.Len(t, resp.Days[0].Tasks, 1)
	assert.Equal(t, "Gym", resp.Days[0].Tasks[0].Title)
	assert.Len(t, resp.Days[2].Tasks, 1)
	assert.Empty(t, resp.Days[1].Tasks)
}

func TestWeekView_RejectsBadAnchor(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := doJSON(t, srv, http.MethodGet, "/api/week?anchor=13.06.2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDayView_BucketsAndCompletion(t *testing.T) {
	srv, _ := newTestServer(t, false)
	task := addGym(t, srv)

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/tasks/%d/complete", task.ID),
		map[string]any{"date": "2024-06-10"})
	require.Equal(t, http.StatusOK, rec.Code)

	var day struct {
		Date    string `json:"date"`
		Weekday string `json:"weekday"`
		Hours   []struct {
			Hour  string `json:"hour"`
			Tasks []struct {
				models.Task
				Completed bool `json:"completed"`
			} `json:"tasks"`
		} `json:"hours"`
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/day/2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &day)

	require.Len(t, day.Hours, 24)
	assert.Equal(t, "Mon", day.Weekday)
	assert.Equal(t, "00:00", day.Hours[0].Hour)
	require.Len(t, day.Hours[7].Tasks, 1)
	assert.True(t, day.Hours[7].Tasks[0].Completed)

	// The next Monday's occurrence is untouched.
	rec = doJSON(t, srv, http.MethodGet, "/api/day/2024-06-17", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &day)
	require.Len(t, day.Hours[7].Tasks, 1)
	assert.False(t, day.Hours[7].Tasks[0].Completed)
}

func TestEditTask(t *testing.T) {
	srv, _ := newTestServer(t, false)
	task := addGym(t, srv)

	rec := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]any{
		"title": "Pool", "time": "08:00", "description": "bring towel",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Pool", resp.Task.Title)
	assert.Equal(t, task.Days, resp.Task.Days)

	rec = doJSON(t, srv, http.MethodPut, "/api/tasks/424242", map[string]any{
		"title": "x", "time": "08:00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTask_GatedOnConnectivityAndIdentity(t *testing.T) {
	srv, repo := newTestServer(t, true)
	task := addGym(t, srv)

	repo.SetOnline(false)
	rec := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	repo.SetOnline(true)
	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/week?anchor=2024-06-13", nil)
	var resp struct {
		Days []struct {
			Tasks []models.Task `json:"tasks"`
		} `json:"days"`
	}
	decode(t, rec, &resp)
	assert.Empty(t, resp.Days[0].Tasks)
}

func TestDeleteTask_UnauthenticatedIsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t, false)
	task := addGym(t, srv)

	rec := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusEndpoints(t *testing.T) {
	srv, repo := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Online bool   `json:"online"`
		User   string `json:"user"`
	}
	decode(t, rec, &status)
	assert.True(t, status.Online)
	assert.Empty(t, status.User)

	rec = doJSON(t, srv, http.MethodPost, "/api/status/online", map[string]any{"online": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, repo.Online())

	rec = doJSON(t, srv, http.MethodPost, "/api/status/online", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportancePalette(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodGet, "/api/meta/importance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Levels         []models.ImportanceLevel `json:"levels"`
		ExactDateColor string                   `json:"exact_date_color"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Levels, 4)
	assert.Equal(t, "High", resp.Levels[0].Name)
	assert.Equal(t, models.ExactDateColor, resp.ExactDateColor)
}
