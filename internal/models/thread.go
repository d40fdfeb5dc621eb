package models

import "time"

// Thread is a conversation thread created on the AI provider that has not
// been deleted yet.
type Thread struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
