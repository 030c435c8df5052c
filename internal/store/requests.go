package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// CreateRequest records a request for an item. The quantity is stored as text
// exactly as received.
func CreateRequest(ctx context.Context, db *sql.DB, username, itemName string, quantity model.Quantity) (*model.ItemRequest, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO requests (username, item_name, quantity) VALUES (?, ?, ?)`,
		username, itemName, string(quantity),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	r := &model.ItemRequest{}
	var qty string
	err = db.QueryRowContext(ctx,
		`SELECT id, username, item_name, quantity, requested_at FROM requests WHERE id = ?`, id,
	).Scan(&r.ID, &r.Username, &r.ItemName, &qty, &r.RequestedAt)
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	r.Quantity = model.Quantity(qty)
	return r, nil
}

// ListRequests returns requests, newest first. An empty username lists every
// user's requests.
func ListRequests(ctx context.Context, db *sql.DB, username string) ([]model.ItemRequest, error) {
	query := `SELECT id, username, item_name, quantity, requested_at FROM requests`
	var args []any
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.ItemRequest
	for rows.Next() {
		var r model.ItemRequest
		var qty string
		if err := rows.Scan(&r.ID, &r.Username, &r.ItemName, &qty, &r.RequestedAt); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.Quantity = model.Quantity(qty)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
