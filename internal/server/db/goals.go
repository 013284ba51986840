package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GoalRow is a stored goal.
type GoalRow struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Category    string
	TargetDate  string // YYYY-MM-DD, empty when unset
	Completed   bool
	CreatedAt   time.Time
	ClientID    int64
}

// ListGoals returns all goals for the user, newest first.
func (db *DB) ListGoals(ctx context.Context, userID int64) ([]*GoalRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, description, category, target_date,
		       completed, created_at, client_id
		FROM goals
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*GoalRow
	for rows.Next() {
		var g GoalRow
		var targetDate sql.NullString
		var createdAt string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description,
			&g.Category, &targetDate, &g.Completed, &createdAt, &g.ClientID); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.TargetDate = targetDate.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			g.CreatedAt = t
		}
		goals = append(goals, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// InsertGoal stores a new goal and returns the server row ID.
func (db *DB) InsertGoal(ctx context.Context, g *GoalRow) (int64, error) {
	var serverID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		createdAt := g.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO goals (
				user_id, title, description, category, target_date,
				completed, created_at, client_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.UserID, g.Title, g.Description, g.Category,
			emptyToNull(g.TargetDate), g.Completed,
			createdAt.Format(time.RFC3339), g.ClientID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert goal: %w", err)
		}
		serverID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get goal id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return serverID, nil
}

// UpdateGoal replaces the full row identified by (client_id, user_id).
// Returns ErrNotFound when the ownership check fails.
func (db *DB) UpdateGoal(ctx context.Context, g *GoalRow) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ownedGoalExists(ctx, tx, g.ClientID, g.UserID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE goals SET
				title = ?, description = ?, category = ?, target_date = ?, completed = ?
			WHERE client_id = ? AND user_id = ?`,
			g.Title, g.Description, g.Category, emptyToNull(g.TargetDate),
			g.Completed, g.ClientID, g.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update goal: %w", err)
		}
		return nil
	})
}

// DeleteGoal removes the row identified by (client_id, user_id).
// Returns ErrNotFound when the ownership check fails.
func (db *DB) DeleteGoal(ctx context.Context, clientID, userID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := ownedGoalExists(ctx, tx, clientID, userID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM goals WHERE client_id = ? AND user_id = ?`, clientID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete goal: %w", err)
		}
		return nil
	})
}

func ownedGoalExists(ctx context.Context, tx *sql.Tx, clientID, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM goals WHERE client_id = ? AND user_id = ?`, clientID, userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check goal ownership: %w", err)
	}
	return nil
}
