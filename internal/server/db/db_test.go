package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkeller/flowdeck/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return database
}

func testUser(t *testing.T, database *DB, email string) int64 {
	t.Helper()
	user, err := database.CreateUser(context.Background(), "Test User", email, "secret-password")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user.ID
}

func TestInitSchemaIdempotent(t *testing.T) {
	database := testDB(t)
	if err := database.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	if _, err := database.CreateUser(ctx, "A", "dup@example.com", "password-one"); err != nil {
		t.Fatalf("first CreateUser failed: %v", err)
	}
	_, err := database.CreateUser(ctx, "B", "dup@example.com", "password-two")
	if err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestVerifyUser(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	if _, err := database.CreateUser(ctx, "A", "a@example.com", "correct-horse"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := database.VerifyUser(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("VerifyUser failed: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Errorf("wrong user: %+v", user)
	}

	if _, err := database.VerifyUser(ctx, "a@example.com", "wrong"); err != ErrNotFound {
		t.Errorf("bad password: expected ErrNotFound, got %v", err)
	}
	if _, err := database.VerifyUser(ctx, "nobody@example.com", "whatever"); err != ErrNotFound {
		t.Errorf("unknown email: expected ErrNotFound, got %v", err)
	}
}

func TestTaskCRUDAndOwnership(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	alice := testUser(t, database, "alice@example.com")
	bob := testUser(t, database, "bob@example.com")

	serverID, err := database.InsertTask(ctx, &TaskRow{
		UserID:   alice,
		Title:    "Write report",
		Date:     "2026-09-01",
		ClientID: 1,
	})
	if err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
	if serverID == 0 {
		t.Error("expected a server row ID")
	}

	tasks, err := database.ListTasks(ctx, alice)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Write report" || tasks[0].ClientID != 1 {
		t.Errorf("unexpected tasks: %+v", tasks)
	}

	// Bob must not be able to touch Alice's record through her client ID.
	err = database.UpdateTask(ctx, &TaskRow{UserID: bob, Title: "hijack", ClientID: 1})
	if err != ErrNotFound {
		t.Errorf("cross-user update: expected ErrNotFound, got %v", err)
	}
	if err := database.DeleteTask(ctx, 1, bob); err != ErrNotFound {
		t.Errorf("cross-user delete: expected ErrNotFound, got %v", err)
	}

	// Same client ID under a different user is a distinct record.
	if _, err := database.InsertTask(ctx, &TaskRow{UserID: bob, Title: "Bob task", ClientID: 1}); err != nil {
		t.Fatalf("InsertTask for second user failed: %v", err)
	}

	err = database.UpdateTask(ctx, &TaskRow{
		UserID: alice, Title: "Write report", Completed: true, ClientID: 1,
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	tasks, _ = database.ListTasks(ctx, alice)
	if !tasks[0].Completed {
		t.Error("update did not persist completed flag")
	}

	if err := database.DeleteTask(ctx, 1, alice); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	tasks, _ = database.ListTasks(ctx, alice)
	if len(tasks) != 0 {
		t.Errorf("expected no tasks after delete, got %d", len(tasks))
	}

	bobTasks, _ := database.ListTasks(ctx, bob)
	if len(bobTasks) != 1 {
		t.Errorf("bob's task should survive alice's delete, got %d", len(bobTasks))
	}
}

func TestListTasksNewestFirst(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	userID := testUser(t, database, "order@example.com")

	for i := int64(1); i <= 3; i++ {
		if _, err := database.InsertTask(ctx, &TaskRow{UserID: userID, Title: "t", ClientID: i}); err != nil {
			t.Fatalf("InsertTask failed: %v", err)
		}
	}

	tasks, err := database.ListTasks(ctx, userID)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 3 || tasks[0].ClientID != 3 || tasks[2].ClientID != 1 {
		t.Errorf("expected newest first, got %+v", tasks)
	}
}

func TestGoalCRUD(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	userID := testUser(t, database, "goals@example.com")

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if _, err := database.InsertGoal(ctx, &GoalRow{
		UserID:    userID,
		Title:     "Run a marathon",
		Category:  "long",
		CreatedAt: created,
		ClientID:  1,
	}); err != nil {
		t.Fatalf("InsertGoal failed: %v", err)
	}

	goals, err := database.ListGoals(ctx, userID)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(goals) != 1 || goals[0].Category != "long" {
		t.Fatalf("unexpected goals: %+v", goals)
	}
	if !goals[0].CreatedAt.Equal(created) {
		t.Errorf("created_at not preserved: %v", goals[0].CreatedAt)
	}

	err = database.UpdateGoal(ctx, &GoalRow{
		UserID: userID, Title: "Run a marathon", Category: "long", Completed: true, ClientID: 1,
	})
	if err != nil {
		t.Fatalf("UpdateGoal failed: %v", err)
	}
	goals, _ = database.ListGoals(ctx, userID)
	if !goals[0].Completed {
		t.Error("update did not persist completed flag")
	}

	if err := database.DeleteGoal(ctx, 1, userID); err != nil {
		t.Fatalf("DeleteGoal failed: %v", err)
	}
}

func TestSessionStatisticsRollover(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	userID := testUser(t, database, "pomo@example.com")

	day1 := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	record := func(now time.Time) {
		t.Helper()
		err := database.InsertSessionAt(ctx, &SessionRow{
			UserID:   userID,
			Date:     now.Format(time.RFC3339),
			Duration: 1500,
			Type:     "work",
		}, now)
		if err != nil {
			t.Fatalf("InsertSessionAt failed: %v", err)
		}
	}

	record(day1)
	record(day1)
	record(day1)

	stats, err := database.GetPomodoroStatistics(ctx, userID)
	if err != nil {
		t.Fatalf("GetPomodoroStatistics failed: %v", err)
	}
	if stats.CompletedToday != 3 || stats.CompletedSessions != 3 {
		t.Errorf("same-day counts wrong: today=%d total=%d", stats.CompletedToday, stats.CompletedSessions)
	}
	if stats.TotalFocusTime != 4500 {
		t.Errorf("focus time wrong: %d", stats.TotalFocusTime)
	}

	// Next day: the daily counter resets to 1, totals keep accumulating,
	// and the week counter keeps counting within the same ISO week.
	record(day2)

	stats, err = database.GetPomodoroStatistics(ctx, userID)
	if err != nil {
		t.Fatalf("GetPomodoroStatistics failed: %v", err)
	}
	if stats.CompletedToday != 1 {
		t.Errorf("daily rollover: expected 1, got %d", stats.CompletedToday)
	}
	if stats.CompletedSessions != 4 {
		t.Errorf("total should accumulate: got %d", stats.CompletedSessions)
	}
	if stats.CompletedThisWeek != 4 {
		t.Errorf("same ISO week should accumulate: got %d", stats.CompletedThisWeek)
	}
	if stats.LastSessionDate != "2026-09-02" {
		t.Errorf("last session date wrong: %s", stats.LastSessionDate)
	}

	// A new ISO week resets the weekly counter too.
	record(day1.AddDate(0, 0, 7))
	stats, _ = database.GetPomodoroStatistics(ctx, userID)
	if stats.CompletedThisWeek != 1 {
		t.Errorf("weekly rollover: expected 1, got %d", stats.CompletedThisWeek)
	}
}

func TestBreakSessionsDoNotTouchStatistics(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	userID := testUser(t, database, "break@example.com")

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	err := database.InsertSessionAt(ctx, &SessionRow{
		UserID:   userID,
		Date:     now.Format(time.RFC3339),
		Duration: 300,
		Type:     "short_break",
	}, now)
	if err != nil {
		t.Fatalf("InsertSessionAt failed: %v", err)
	}

	stats, err := database.GetPomodoroStatistics(ctx, userID)
	if err != nil {
		t.Fatalf("GetPomodoroStatistics failed: %v", err)
	}
	if stats.CompletedSessions != 0 || stats.TotalFocusTime != 0 {
		t.Errorf("break session must not count: %+v", stats)
	}
	if len(stats.SessionsHistory) != 0 {
		t.Errorf("history should only contain work sessions, got %d", len(stats.SessionsHistory))
	}
}

func TestUserStatisticsRoundTrip(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()
	userID := testUser(t, database, "stats@example.com")

	// A user with no row gets zeroed defaults with the four buckets.
	stats, err := database.GetUserStatistics(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserStatistics failed: %v", err)
	}
	if stats.CurrentStreak != 0 || len(stats.TimeOfDayStats) != 4 {
		t.Errorf("unexpected defaults: %+v", stats)
	}

	saved := &model.UserStatistics{
		CurrentStreak:  3,
		LongestStreak:  7,
		LastActiveDate: "2026-09-01",
		ActivityLogs: []model.ActivityLog{
			{Date: "2026-09-01", CompletedTasks: 2, TotalTasks: 5},
		},
		TimeOfDayStats: []model.TimeOfDayStat{
			{Time: "Morning", Completed: 2},
		},
	}
	if err := database.SaveUserStatistics(ctx, userID, saved); err != nil {
		t.Fatalf("SaveUserStatistics failed: %v", err)
	}

	got, err := database.GetUserStatistics(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserStatistics failed: %v", err)
	}
	if got.CurrentStreak != 3 || got.LongestStreak != 7 || got.LastActiveDate != "2026-09-01" {
		t.Errorf("streaks not preserved: %+v", got)
	}
	if len(got.ActivityLogs) != 1 || got.ActivityLogs[0].CompletedTasks != 2 {
		t.Errorf("activity logs not preserved: %+v", got.ActivityLogs)
	}

	// Saving again overwrites rather than duplicating.
	saved.CurrentStreak = 4
	if err := database.SaveUserStatistics(ctx, userID, saved); err != nil {
		t.Fatalf("second SaveUserStatistics failed: %v", err)
	}
	got, _ = database.GetUserStatistics(ctx, userID)
	if got.CurrentStreak != 4 {
		t.Errorf("overwrite failed: %+v", got)
	}
}
