// Package model provides the data structures shared between the FlowDeck
// client stores and the server API.
//
// Records created on the client carry a client-assigned ID and a SyncState.
// The server assigns its own row ID on first successful sync and correlates
// the two through the client ID, so a record keeps a single identity across
// offline creation and later synchronization.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncState tracks whether a local record has been confirmed persisted
// server-side.
//
// A record starts as StatePending, transitions to StateSynced only after a
// confirmed round trip, and moves to StateFailed when a server write fails.
// Failed records populate the retry queue; pending and failed records are
// both treated as unsynced during merges and must never be dropped.
type SyncState string

const (
	StatePending SyncState = "pending"
	StateSynced  SyncState = "synced"
	StateFailed  SyncState = "failed"
)

// Unsynced reports whether the record still needs a server write.
func (s SyncState) Unsynced() bool {
	return s != StateSynced
}

// UnmarshalJSON decodes a sync state, mapping unknown values to pending so
// that caches written by older versions stay loadable.
func (s *SyncState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch SyncState(raw) {
	case StateSynced, StateFailed:
		*s = SyncState(raw)
	default:
		*s = StatePending
	}
	return nil
}

// Task is a todo item.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Favorited   bool      `json:"favorited"`
	Date        string    `json:"date,omitempty"` // YYYY-MM-DD
	Time        string    `json:"time,omitempty"` // HH:MM
	SyncState   SyncState `json:"syncState"`
	ServerID    int64     `json:"serverId,omitempty"`
}

// Validate checks the fields a server write requires.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	return nil
}

// GoalCategory classifies a goal's time horizon.
type GoalCategory string

const (
	GoalShort GoalCategory = "short"
	GoalLong  GoalCategory = "long"
	GoalLife  GoalCategory = "life"
)

// Valid reports whether the category is one of the known values.
func (c GoalCategory) Valid() bool {
	switch c {
	case GoalShort, GoalLong, GoalLife:
		return true
	}
	return false
}

// Goal is a short-, long-, or life-horizon objective.
type Goal struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    GoalCategory `json:"category"`
	TargetDate  string       `json:"targetDate,omitempty"` // YYYY-MM-DD
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"createdAt"`
	SyncState   SyncState    `json:"syncState"`
	ServerID    int64        `json:"serverId,omitempty"`
}

// Validate checks the fields a server write requires.
func (g *Goal) Validate() error {
	if g.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !g.Category.Valid() {
		return fmt.Errorf("invalid category %q", g.Category)
	}
	return nil
}

// SessionType identifies a pomodoro interval kind.
type SessionType string

const (
	SessionWork       SessionType = "work"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

// Valid reports whether the session type is one of the known values.
func (t SessionType) Valid() bool {
	switch t {
	case SessionWork, SessionShortBreak, SessionLongBreak:
		return true
	}
	return false
}

// SessionRecord is a single completed pomodoro interval.
//
// Sessions have no client-assigned ID; the date string is the only merge key.
type SessionRecord struct {
	Date      string      `json:"date"` // RFC 3339
	Duration  int         `json:"duration"`
	Type      SessionType `json:"type"`
	SyncState SyncState   `json:"syncState"`
}

// Validate checks the fields a server write requires.
func (r *SessionRecord) Validate() error {
	if r.Date == "" {
		return fmt.Errorf("date is required")
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive (got %d)", r.Duration)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid session type %q", r.Type)
	}
	return nil
}

// PomodoroStatistics is the per-user aggregate the server derives from work
// session inserts.
type PomodoroStatistics struct {
	CompletedSessions int             `json:"completedSessions"`
	CompletedToday    int             `json:"completedToday"`
	CompletedThisWeek int             `json:"completedThisWeek"`
	TotalFocusTime    int             `json:"totalFocusTime"` // seconds
	LastSessionDate   string          `json:"lastSessionDate"`
	LastWeekNumber    int             `json:"lastWeekNumber"`
	SessionsHistory   []SessionRecord `json:"sessionsHistory"`
}

// ActivityLog records task completion counts for a single day.
type ActivityLog struct {
	Date           string `json:"date"` // YYYY-MM-DD
	CompletedTasks int    `json:"completedTasks"`
	TotalTasks     int    `json:"totalTasks"`
}

// TimeOfDayStat counts completions in one of the four fixed day buckets.
type TimeOfDayStat struct {
	Time      string `json:"time"` // Morning, Afternoon, Evening, Night
	Completed int    `json:"completed"`
}

// DefaultTimeOfDayStats returns the four empty buckets in canonical order.
func DefaultTimeOfDayStats() []TimeOfDayStat {
	return []TimeOfDayStat{
		{Time: "Morning"},
		{Time: "Afternoon"},
		{Time: "Evening"},
		{Time: "Night"},
	}
}

// UserStatistics is the client-derived streak and activity state, pushed to
// the server as a full-state overwrite.
type UserStatistics struct {
	CurrentStreak  int             `json:"currentStreak"`
	LongestStreak  int             `json:"longestStreak"`
	LastActiveDate string          `json:"lastActiveDate"` // YYYY-MM-DD
	ActivityLogs   []ActivityLog   `json:"activityLogs"`
	TimeOfDayStats []TimeOfDayStat `json:"timeOfDayStats"`
}

// WeekNumber returns the ISO 8601 week number for t.
func WeekNumber(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// DateString formats t as the YYYY-MM-DD form used for rollover comparison.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}
