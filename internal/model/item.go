package model

import (
	"fmt"
	"strings"
	"time"
)

// Item is a catalog entry that can be requested.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryItem is one line of a user's inventory.
type InventoryItem struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
}

// String renders the item as "name:quantity".
func (i InventoryItem) String() string {
	return i.Name + ":" + string(i.Quantity)
}

// SummarizeInventory renders items as space-separated "name:quantity" pairs.
func SummarizeInventory(items []InventoryItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, " ")
}

// Quantity is an item count carried as text. It is never parsed as a number so
// that whatever the server sent is shown back unchanged. A JSON number keeps
// its literal form, so 1.50 stays "1.50".
type Quantity string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s, err := decodeText(data)
	if err != nil {
		return fmt.Errorf("decoding quantity: %w", err)
	}
	*q = Quantity(s)
	return nil
}
