package models

import "time"

// Session is a server-side login session row. The client only ever holds a
// signed token referencing the row; the row itself is authoritative.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
