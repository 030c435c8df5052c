package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// AddActivityLog stores one client activity entry.
func AddActivityLog(ctx context.Context, db *sql.DB, username, description string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity_logs (username, description) VALUES (?, ?)`,
		username, description,
	)
	if err != nil {
		return fmt.Errorf("adding activity log: %w", err)
	}
	return nil
}

// ListActivityLogs returns a user's activity in submission order. A limit of
// zero or less returns everything.
func ListActivityLogs(ctx context.Context, db *sql.DB, username string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, username, description, created_at FROM activity_logs
		 WHERE username = ? ORDER BY id LIMIT ?`, username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ActivityLog
	for rows.Next() {
		var l model.ActivityLog
		if err := rows.Scan(&l.ID, &l.Username, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
