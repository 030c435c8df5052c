package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// CreateItem adds an item to the request catalog. Adding an existing name
// returns the existing item.
func CreateItem(ctx context.Context, db *sql.DB, name string) (*model.Item, error) {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO items (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return GetItemByName(ctx, db, name)
}

// GetItemByName returns a catalog item by exact name.
func GetItemByName(ctx context.Context, db *sql.DB, name string) (*model.Item, error) {
	item := &model.Item{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM items WHERE name = ?`, name,
	).Scan(&item.ID, &item.Name, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns the catalog ordered by name.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteItem removes an item from the catalog. Existing holdings are kept.
func DeleteItem(ctx context.Context, db *sql.DB, name string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}
