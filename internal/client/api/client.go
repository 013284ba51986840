// Package api provides the HTTP client the local stores use to talk to a
// FlowDeck server.
//
// The client authenticates with the opaque session token issued by
// /api/login and presents it as a cookie on every request. Server errors
// arrive as the uniform {statusCode, statusMessage, message} envelope and
// are surfaced as *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkeller/flowdeck/internal/model"
)

// SessionCookie is the cookie name the server expects.
// Mirrors session.CookieName; duplicated here so the client package does not
// import server code.
const SessionCookie = "flowdeck_session"

// Error is a structured API error response.
type Error struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Message       string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 API error.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a FlowDeck server.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
// token may be empty for unauthenticated calls.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Token returns the current session token.
func (c *Client) Token() string {
	return c.token
}

// SetToken replaces the session token, e.g. after login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// do performs a JSON request and decodes the response into out (may be nil).
// Non-2xx responses are decoded into *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.token})
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sessionFromResponse extracts the session cookie a login/register response
// sets.
func sessionFromResponse(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// Login authenticates and stores the issued session token on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and stores the auto-login session token.
func (c *Client) Register(ctx context.Context, name, email, password, passwordConfirm string) error {
	return c.authenticate(ctx, "/api/register", map[string]string{
		"name":            name,
		"email":           email,
		"password":        password,
		"passwordConfirm": passwordConfirm,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	token := sessionFromResponse(resp)
	if token == "" {
		return fmt.Errorf("server did not set a session cookie")
	}
	c.token = token
	return nil
}

// Logout revokes the session server-side and clears the local token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// ListTasks fetches all server tasks for the authenticated user.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp struct {
		Success bool         `json:"success"`
		Tasks   []model.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask stores a task server-side and returns the server row ID.
func (c *Client) CreateTask(ctx context.Context, task model.Task) (int64, error) {
	var resp struct {
		Success bool  `json:"success"`
		TaskID  int64 `json:"taskId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", task, &resp); err != nil {
		return 0, err
	}
	return resp.TaskID, nil
}

// UpdateTask replaces the server row correlated with the task's client ID.
func (c *Client) UpdateTask(ctx context.Context, task model.Task) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), task, nil)
}

// DeleteTask removes the server row correlated with the client ID.
func (c *Client) DeleteTask(ctx context.Context, clientID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", clientID), nil, nil)
}

// ListGoals fetches all server goals for the authenticated user.
func (c *Client) ListGoals(ctx context.Context) ([]model.Goal, error) {
	var resp struct {
		Success bool         `json:"success"`
		Goals   []model.Goal `json:"goals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Goals, nil
}

// CreateGoal stores a goal server-side and returns the server row ID.
func (c *Client) CreateGoal(ctx context.Context, goal model.Goal) (int64, error) {
	var resp struct {
		Success bool  `json:"success"`
		GoalID  int64 `json:"goalId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/goals", goal, &resp); err != nil {
		return 0, err
	}
	return resp.GoalID, nil
}

// UpdateGoal replaces the server row correlated with the goal's client ID.
func (c *Client) UpdateGoal(ctx context.Context, goal model.Goal) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/goals/%d", goal.ID), goal, nil)
}

// DeleteGoal removes the server row correlated with the client ID.
func (c *Client) DeleteGoal(ctx context.Context, clientID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/goals/%d", clientID), nil, nil)
}

// CreateSession stores a pomodoro session server-side.
func (c *Client) CreateSession(ctx context.Context, rec model.SessionRecord) error {
	body := map[string]any{
		"date":     rec.Date,
		"duration": rec.Duration,
		"type":     rec.Type,
	}
	return c.do(ctx, http.MethodPost, "/api/pomodoro/sessions", body, nil)
}

// PomodoroStatistics fetches the aggregate plus recent work session history.
func (c *Client) PomodoroStatistics(ctx context.Context) (*model.PomodoroStatistics, error) {
	var resp struct {
		Success    bool                      `json:"success"`
		Statistics *model.PomodoroStatistics `json:"statistics"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pomodoro/statistics", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Statistics, nil
}

// GetStatistics fetches the user's streak/activity state.
func (c *Client) GetStatistics(ctx context.Context) (*model.UserStatistics, error) {
	var resp struct {
		Success bool `json:"success"`
		model.UserStatistics
	}
	if err := c.do(ctx, http.MethodGet, "/api/statistics", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.UserStatistics, nil
}

// SaveStatistics pushes the full streak/activity state.
func (c *Client) SaveStatistics(ctx context.Context, stats *model.UserStatistics) error {
	return c.do(ctx, http.MethodPost, "/api/statistics", stats, nil)
}
