package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkeller/flowdeck/internal/model"
)

// SessionRow is a stored pomodoro session.
type SessionRow struct {
	UserID   int64
	Date     string // RFC 3339
	Duration int    // seconds
	Type     string
}

// InsertSession stores a pomodoro session. For work sessions it also upserts
// the per-user statistics aggregate inside the same transaction: totals
// accumulate, while sessions_today and sessions_this_week reset to 1 when the
// stored date/week differs from the current one (a rollover, not an
// accumulation).
func (db *DB) InsertSession(ctx context.Context, s *SessionRow) error {
	return db.InsertSessionAt(ctx, s, time.Now())
}

// InsertSessionAt is InsertSession with an injectable "now" for rollover
// tests.
func (db *DB) InsertSessionAt(ctx context.Context, s *SessionRow, now time.Time) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pomodoro_sessions (user_id, session_date, duration, session_type)
			VALUES (?, ?, ?, ?)`,
			s.UserID, s.Date, s.Duration, s.Type,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		if s.Type != string(model.SessionWork) {
			return nil
		}

		today := model.DateString(now)
		week := model.WeekNumber(now)

		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pomodoro_statistics WHERE user_id = ?`, s.UserID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check statistics: %w", err)
		}

		if exists == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pomodoro_statistics (
					user_id, total_sessions, total_focus_time,
					sessions_today, sessions_this_week,
					last_session_date, last_week_number, updated_at
				) VALUES (?, 1, ?, 1, 1, ?, ?, ?)`,
				s.UserID, s.Duration, today, week, nowString(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert statistics: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE pomodoro_statistics SET
				total_sessions = total_sessions + 1,
				total_focus_time = total_focus_time + ?,
				sessions_today = CASE WHEN last_session_date = ? THEN sessions_today + 1 ELSE 1 END,
				sessions_this_week = CASE WHEN last_week_number = ? THEN sessions_this_week + 1 ELSE 1 END,
				last_session_date = ?,
				last_week_number = ?,
				updated_at = ?
			WHERE user_id = ?`,
			s.Duration, today, week, today, week, nowString(), s.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update statistics: %w", err)
		}
		return nil
	})
}

// GetPomodoroStatistics returns the user's aggregate plus the most recent 100
// work sessions. A user without a statistics row gets zeroed aggregates with
// whatever session history exists.
func (db *DB) GetPomodoroStatistics(ctx context.Context, userID int64) (*model.PomodoroStatistics, error) {
	stats := &model.PomodoroStatistics{
		LastSessionDate: model.DateString(time.Now()),
	}

	var lastDate sql.NullString
	var lastWeek sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `
		SELECT total_sessions, total_focus_time, sessions_today,
		       sessions_this_week, last_session_date, last_week_number
		FROM pomodoro_statistics
		WHERE user_id = ?`, userID,
	).Scan(&stats.CompletedSessions, &stats.TotalFocusTime, &stats.CompletedToday,
		&stats.CompletedThisWeek, &lastDate, &lastWeek)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	if lastDate.Valid {
		stats.LastSessionDate = lastDate.String
	}
	stats.LastWeekNumber = int(lastWeek.Int64)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_date, duration, session_type
		FROM pomodoro_sessions
		WHERE user_id = ? AND session_type = 'work'
		ORDER BY session_date DESC
		LIMIT 100`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(&rec.Date, &rec.Duration, &rec.Type); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.SyncState = model.StateSynced
		stats.SessionsHistory = append(stats.SessionsHistory, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return stats, nil
}
