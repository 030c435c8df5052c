package model

import "time"

// ItemRequest is a user's request for more of an item.
type ItemRequest struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	ItemName    string    `json:"item_name"`
	Quantity    Quantity  `json:"quantity"`
	RequestedAt time.Time `json:"requested_at"`
}

// ActivityLog is one audit entry submitted by a client.
type ActivityLog struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
