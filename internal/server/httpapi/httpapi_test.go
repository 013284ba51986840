package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mkeller/flowdeck/internal/server/db"
)

func newTestServer(t *testing.T) (*httptest.Server, *db.DB) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	server := NewServer(database, &Config{
		Addr:   ":0",
		Logger: log.New(io.Discard, "", 0),
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, database
}

// newTestClient returns an http client with a cookie jar so the session
// cookie persists across requests.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func register(t *testing.T, client *http.Client, baseURL, email string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/register", map[string]string{
		"name":            "Test User",
		"email":           email,
		"password":        "password123",
		"passwordConfirm": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register returned %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", resp.StatusCode)
	}

	var envelope struct {
		StatusCode    int    `json:"statusCode"`
		StatusMessage string `json:"statusMessage"`
		Message       string `json:"message"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.StatusCode != http.StatusUnauthorized || envelope.Message == "" {
		t.Errorf("malformed error envelope: %+v", envelope)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts, database := newTestServer(t)
	client := newTestClient(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"short password", map[string]string{
			"name": "A", "email": "v@example.com",
			"password": "short", "passwordConfirm": "short",
		}},
		{"mismatched confirm", map[string]string{
			"name": "Ab", "email": "v@example.com",
			"password": "password123", "passwordConfirm": "password124",
		}},
		{"bad email", map[string]string{
			"name": "Ab", "email": "not-an-email",
			"password": "password123", "passwordConfirm": "password123",
		}},
		{"missing name", map[string]string{
			"email": "v@example.com", "password": "password123", "passwordConfirm": "password123",
		}},
	}
	for _, tc := range cases {
		resp := postJSON(t, client, ts.URL+"/api/register", tc.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
	}

	// Validation failures must not leave partial rows behind.
	if _, err := database.GetUserByEmail(context.Background(), "v@example.com"); err != db.ErrNotFound {
		t.Errorf("expected no user row after failed validation, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)

	register(t, client, ts.URL, "dup@example.com")

	resp := postJSON(t, newTestClient(t), ts.URL+"/api/register", map[string]string{
		"name":            "Other",
		"email":           "dup@example.com",
		"password":        "password123",
		"passwordConfirm": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestLoginFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	register(t, newTestClient(t), ts.URL, "login@example.com")

	client := newTestClient(t)
	resp := postJSON(t, client, ts.URL+"/api/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}

	// The session cookie should authenticate API calls.
	listResp, err := client.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks failed: %v", err)
	}
	listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with session, got %d", listResp.StatusCode)
	}

	// Wrong password gets a 401 with no session.
	badResp := postJSON(t, newTestClient(t), ts.URL+"/api/login", map[string]string{
		"email":    "login@example.com",
		"password": "wrong-password",
	})
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", badResp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "out@example.com")

	resp := postJSON(t, client, ts.URL+"/api/logout", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout returned %d", resp.StatusCode)
	}

	after, err := client.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks failed: %v", err)
	}
	after.Body.Close()
	if after.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", after.StatusCode)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "tasks@example.com")

	createResp := postJSON(t, client, ts.URL+"/api/tasks", map[string]any{
		"id":    int64(1),
		"title": "Ship the release",
		"date":  "2026-09-05",
	})
	var created struct {
		Success  bool  `json:"success"`
		TaskID   int64 `json:"taskId"`
		ClientID int64 `json:"clientId"`
	}
	decodeBody(t, createResp, &created)
	if !created.Success || created.TaskID == 0 || created.ClientID != 1 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	listResp, err := client.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks failed: %v", err)
	}
	var listed struct {
		Success bool `json:"success"`
		Tasks   []struct {
			ID        int64  `json:"id"`
			Title     string `json:"title"`
			Date      string `json:"date"`
			SyncState string `json:"syncState"`
			ServerID  int64  `json:"serverId"`
		} `json:"tasks"`
	}
	decodeBody(t, listResp, &listed)
	if len(listed.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(listed.Tasks))
	}
	got := listed.Tasks[0]
	if got.ID != 1 || got.Title != "Ship the release" || got.Date != "2026-09-05" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.SyncState != "synced" || got.ServerID != created.TaskID {
		t.Errorf("server records must come back synced with their row id: %+v", got)
	}

	// Update through the client ID.
	req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/tasks/%d", ts.URL, 1),
		bytes.NewReader([]byte(`{"id":1,"title":"Ship the release","completed":true}`)))
	req.Header.Set("Content-Type", "application/json")
	updateResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	updateResp.Body.Close()
	if updateResp.StatusCode != http.StatusOK {
		t.Fatalf("update returned %d", updateResp.StatusCode)
	}

	// Delete it.
	del, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/tasks/%d", ts.URL, 1), nil)
	delResp, err := client.Do(del)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", delResp.StatusCode)
	}
}

func TestTaskOwnershipIsolation(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newTestClient(t)
	register(t, alice, ts.URL, "alice@example.com")
	bob := newTestClient(t)
	register(t, bob, ts.URL, "bob@example.com")

	resp := postJSON(t, alice, ts.URL+"/api/tasks", map[string]any{"id": 1, "title": "Alice's task"})
	resp.Body.Close()

	// Bob updating client ID 1 gets a 404, not Alice's record.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/tasks/1",
		bytes.NewReader([]byte(`{"id":1,"title":"hijack"}`)))
	req.Header.Set("Content-Type", "application/json")
	updateResp, err := bob.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	updateResp.Body.Close()
	if updateResp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign record, got %d", updateResp.StatusCode)
	}

	// Bob's own listing stays empty.
	listResp, _ := bob.Get(ts.URL + "/api/tasks")
	var listed struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	decodeBody(t, listResp, &listed)
	if len(listed.Tasks) != 0 {
		t.Errorf("bob should see no tasks, got %d", len(listed.Tasks))
	}
}

func TestTaskValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "valid@example.com")

	resp := postJSON(t, client, ts.URL+"/api/tasks", map[string]any{"id": 1, "title": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty title: expected 400, got %d", resp.StatusCode)
	}

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	resp = postJSON(t, client, ts.URL+"/api/tasks", map[string]any{"id": 1, "title": string(long)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized title: expected 400, got %d", resp.StatusCode)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "goals@example.com")

	resp := postJSON(t, client, ts.URL+"/api/goals", map[string]any{
		"id":       1,
		"title":    "Learn Go",
		"category": "short",
	})
	var created struct {
		Success bool  `json:"success"`
		GoalID  int64 `json:"goalId"`
	}
	decodeBody(t, resp, &created)
	if !created.Success || created.GoalID == 0 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	bad := postJSON(t, client, ts.URL+"/api/goals", map[string]any{
		"id": 2, "title": "No such horizon", "category": "medium",
	})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid category: expected 400, got %d", bad.StatusCode)
	}

	listResp, _ := client.Get(ts.URL + "/api/goals")
	var listed struct {
		Goals []struct {
			ID       int64  `json:"id"`
			Category string `json:"category"`
		} `json:"goals"`
	}
	decodeBody(t, listResp, &listed)
	if len(listed.Goals) != 1 || listed.Goals[0].Category != "short" {
		t.Errorf("unexpected goals: %+v", listed.Goals)
	}
}

func TestPomodoroEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "pomo@example.com")

	resp := postJSON(t, client, ts.URL+"/api/pomodoro/sessions", map[string]any{
		"date":     "2026-09-01T10:00:00Z",
		"duration": 1500,
		"type":     "work",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session create returned %d", resp.StatusCode)
	}

	bad := postJSON(t, client, ts.URL+"/api/pomodoro/sessions", map[string]any{
		"date": "2026-09-01T10:00:00Z", "duration": 0, "type": "work",
	})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("zero duration: expected 400, got %d", bad.StatusCode)
	}

	statsResp, _ := client.Get(ts.URL + "/api/pomodoro/statistics")
	var stats struct {
		Success    bool `json:"success"`
		Statistics struct {
			CompletedSessions int `json:"completedSessions"`
			CompletedToday    int `json:"completedToday"`
			SessionsHistory   []struct {
				SyncState string `json:"syncState"`
			} `json:"sessionsHistory"`
		} `json:"statistics"`
	}
	decodeBody(t, statsResp, &stats)
	if stats.Statistics.CompletedSessions != 1 {
		t.Errorf("expected 1 completed session, got %d", stats.Statistics.CompletedSessions)
	}
	if len(stats.Statistics.SessionsHistory) != 1 || stats.Statistics.SessionsHistory[0].SyncState != "synced" {
		t.Errorf("history should come back synced: %+v", stats.Statistics.SessionsHistory)
	}
}

func TestStatisticsEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	register(t, client, ts.URL, "stats@example.com")

	resp := postJSON(t, client, ts.URL+"/api/statistics", map[string]any{
		"currentStreak":  2,
		"longestStreak":  5,
		"lastActiveDate": "2026-09-01",
		"activityLogs": []map[string]any{
			{"date": "2026-09-01", "completedTasks": 3, "totalTasks": 4},
		},
		"timeOfDayStats": []map[string]any{
			{"time": "Morning", "completed": 3},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics save returned %d", resp.StatusCode)
	}

	getResp, _ := client.Get(ts.URL + "/api/statistics")
	var got struct {
		Success        bool   `json:"success"`
		CurrentStreak  int    `json:"currentStreak"`
		LongestStreak  int    `json:"longestStreak"`
		LastActiveDate string `json:"lastActiveDate"`
		ActivityLogs   []struct {
			CompletedTasks int `json:"completedTasks"`
		} `json:"activityLogs"`
	}
	decodeBody(t, getResp, &got)
	if got.CurrentStreak != 2 || got.LongestStreak != 5 || got.LastActiveDate != "2026-09-01" {
		t.Errorf("unexpected statistics: %+v", got)
	}
	if len(got.ActivityLogs) != 1 || got.ActivityLogs[0].CompletedTasks != 3 {
		t.Errorf("activity logs not preserved: %+v", got.ActivityLogs)
	}
}
