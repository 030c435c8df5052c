package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// CreateSession records a client login. Sessions that started before
// expiredBefore (unix seconds) are removed in passing.
func CreateSession(ctx context.Context, db *sql.DB, rec model.SessionRecord, expiredBefore int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (auth_token, username, started_at) VALUES (?, ?, ?)
		 ON CONFLICT (auth_token) DO UPDATE SET username = excluded.username, started_at = excluded.started_at`,
		rec.AuthToken, rec.Username, rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	// Opportunistically clean up expired sessions.
	_, _ = DeleteExpiredSessions(ctx, db, expiredBefore)

	return nil
}

// GetSession returns the session for an auth token.
func GetSession(ctx context.Context, db *sql.DB, authToken string) (*model.SessionRecord, error) {
	rec := &model.SessionRecord{}
	err := db.QueryRowContext(ctx,
		`SELECT auth_token, username, started_at FROM sessions WHERE auth_token = ?`, authToken,
	).Scan(&rec.AuthToken, &rec.Username, &rec.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return rec, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, authToken string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE auth_token = ?`, authToken)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that started before cutoff (unix
// seconds) and returns how many were removed.
func DeleteExpiredSessions(ctx context.Context, db *sql.DB, cutoff int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired sessions: %w", err)
	}
	return n, nil
}
