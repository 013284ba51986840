package db

import (
	"context"
	"database/sql"
	"fmt"
)

// TaskRow is a stored task. ClientID is the client-assigned correlation ID;
// ID is the server row ID returned to the client as serverId.
type TaskRow struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Completed   bool
	Favorited   bool
	Date        string // YYYY-MM-DD, empty when unset
	Time        string // HH:MM, empty when unset
	ClientID    int64
}

// ListTasks returns all tasks for the user, newest first.
func (db *DB) ListTasks(ctx context.Context, userID int64) ([]*TaskRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, description, completed, favorited,
		       task_date, task_time, client_id
		FROM tasks
		WHERE user_id = ?
		ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*TaskRow
	for rows.Next() {
		var t TaskRow
		var date, tm sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description,
			&t.Completed, &t.Favorited, &date, &tm, &t.ClientID); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Date = date.String
		t.Time = tm.String
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// InsertTask stores a new task and returns the server row ID.
func (db *DB) InsertTask(ctx context.Context, t *TaskRow) (int64, error) {
	var serverID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				user_id, title, description, completed, favorited,
				task_date, task_time, client_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Title, t.Description, t.Completed, t.Favorited,
			emptyToNull(t.Date), emptyToNull(t.Time), t.ClientID, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		serverID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get task id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return serverID, nil
}

// UpdateTask replaces the full row identified by (client_id, user_id).
// Returns ErrNotFound when the row doesn't exist or is owned by another user.
func (db *DB) UpdateTask(ctx context.Context, t *TaskRow) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ownedTaskExists(ctx, tx, t.ClientID, t.UserID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				title = ?, description = ?, completed = ?, favorited = ?,
				task_date = ?, task_time = ?, updated_at = ?
			WHERE client_id = ? AND user_id = ?`,
			t.Title, t.Description, t.Completed, t.Favorited,
			emptyToNull(t.Date), emptyToNull(t.Time), nowString(),
			t.ClientID, t.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
}

// DeleteTask removes the row identified by (client_id, user_id).
// Returns ErrNotFound when the ownership check fails.
func (db *DB) DeleteTask(ctx context.Context, clientID, userID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ownedTaskExists(ctx, tx, clientID, userID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM tasks WHERE client_id = ? AND user_id = ?`, clientID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
}

// ownedTaskExists verifies the (client_id, user_id) pair maps to a row.
func ownedTaskExists(ctx context.Context, tx *sql.Tx, clientID, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM tasks WHERE client_id = ? AND user_id = ?`, clientID, userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check task ownership: %w", err)
	}
	return nil
}

// emptyToNull converts an empty string to a SQL NULL.
func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
