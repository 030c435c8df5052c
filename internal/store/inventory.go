package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// SetHolding sets how much of an item a user holds. A new holding is appended
// after the user's existing ones; updating keeps its position.
func SetHolding(ctx context.Context, db *sql.DB, userID int64, itemName string, quantity model.Quantity) error {
	if itemName == "" {
		return fmt.Errorf("item name must not be empty")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM inventory WHERE user_id = ?`, userID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("finding next position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory (user_id, item_name, quantity, position) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, item_name) DO UPDATE SET quantity = excluded.quantity`,
		userID, itemName, string(quantity), next,
	)
	if err != nil {
		return fmt.Errorf("setting holding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing holding: %w", err)
	}
	return nil
}

// RemoveHolding deletes a user's holding of an item.
func RemoveHolding(ctx context.Context, db *sql.DB, userID int64, itemName string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM inventory WHERE user_id = ? AND item_name = ?`, userID, itemName,
	)
	if err != nil {
		return fmt.Errorf("removing holding: %w", err)
	}
	return nil
}

// ListInventory returns a user's holdings in the order they were added. A
// user with no holdings gets an empty, non-nil slice.
func ListInventory(ctx context.Context, db *sql.DB, username string) ([]model.InventoryItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT inv.item_name, inv.quantity
		 FROM inventory inv
		 JOIN users u ON u.id = inv.user_id
		 WHERE u.username = ?
		 ORDER BY inv.position`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	items := []model.InventoryItem{}
	for rows.Next() {
		var item model.InventoryItem
		var quantity string
		if err := rows.Scan(&item.Name, &quantity); err != nil {
			return nil, fmt.Errorf("scanning inventory: %w", err)
		}
		item.Quantity = model.Quantity(quantity)
		items = append(items, item)
	}
	return items, rows.Err()
}
