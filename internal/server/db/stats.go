package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mkeller/flowdeck/internal/model"
)

// GetUserStatistics returns the user's streak/activity state. A user without
// a row gets zeroed defaults with the four empty time-of-day buckets.
//
// Activity logs and time-of-day buckets are stored as opaque JSON blobs and
// deserialized here.
func (db *DB) GetUserStatistics(ctx context.Context, userID int64) (*model.UserStatistics, error) {
	var stats model.UserStatistics
	var lastActive sql.NullString
	var logsJSON, bucketsJSON string

	err := db.conn.QueryRowContext(ctx, `
		SELECT current_streak, longest_streak, last_active_date,
		       activity_logs, time_of_day_stats
		FROM user_statistics
		WHERE user_id = ?`, userID,
	).Scan(&stats.CurrentStreak, &stats.LongestStreak, &lastActive, &logsJSON, &bucketsJSON)
	if err == sql.ErrNoRows {
		return &model.UserStatistics{
			ActivityLogs:   []model.ActivityLog{},
			TimeOfDayStats: model.DefaultTimeOfDayStats(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user statistics: %w", err)
	}

	stats.LastActiveDate = lastActive.String

	if err := json.Unmarshal([]byte(logsJSON), &stats.ActivityLogs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity logs: %w", err)
	}
	if err := json.Unmarshal([]byte(bucketsJSON), &stats.TimeOfDayStats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal time of day stats: %w", err)
	}
	if stats.ActivityLogs == nil {
		stats.ActivityLogs = []model.ActivityLog{}
	}
	if len(stats.TimeOfDayStats) == 0 {
		stats.TimeOfDayStats = model.DefaultTimeOfDayStats()
	}

	return &stats, nil
}

// SaveUserStatistics stores the full client-pushed state, inserting or
// updating the single per-user row.
func (db *DB) SaveUserStatistics(ctx context.Context, userID int64, stats *model.UserStatistics) error {
	logsJSON, err := json.Marshal(stats.ActivityLogs)
	if err != nil {
		return fmt.Errorf("failed to marshal activity logs: %w", err)
	}
	bucketsJSON, err := json.Marshal(stats.TimeOfDayStats)
	if err != nil {
		return fmt.Errorf("failed to marshal time of day stats: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM user_statistics WHERE user_id = ?`, userID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check user statistics: %w", err)
		}

		if exists == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO user_statistics (
					user_id, current_streak, longest_streak, last_active_date,
					activity_logs, time_of_day_stats, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				userID, stats.CurrentStreak, stats.LongestStreak,
				emptyToNull(stats.LastActiveDate), string(logsJSON), string(bucketsJSON),
				nowString(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert user statistics: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE user_statistics SET
				current_streak = ?, longest_streak = ?, last_active_date = ?,
				activity_logs = ?, time_of_day_stats = ?, updated_at = ?
			WHERE user_id = ?`,
			stats.CurrentStreak, stats.LongestStreak,
			emptyToNull(stats.LastActiveDate), string(logsJSON), string(bucketsJSON),
			nowString(), userID,
		)
		if err != nil {
			return fmt.Errorf("failed to update user statistics: %w", err)
		}
		return nil
	})
}
