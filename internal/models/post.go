package models

import "time"

// Post represents a short text post
type Post struct {
	ID         int64     `json:"id"`
	DatePosted time.Time `json:"date_posted"`
	Content    string    `json:"content"`
	UserID     int64     `json:"user_id"`
}
