package models

// Bookmark marks a post as saved. Lookup is keyed by post id alone,
// so a toggle by any user acts on the same row.
type Bookmark struct {
	ID     int64 `json:"id"`
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}
