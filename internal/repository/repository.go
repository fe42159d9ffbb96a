package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/vkdev/tweeter-service/internal/models"
)

// Sentinel errors surfaced to the service layer.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the tables if they do not exist yet. The original
// application created its schema lazily on first contact; we do it once at
// startup instead.
func (r *Repository) EnsureSchema() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(25) UNIQUE NOT NULL,
			email VARCHAR(120) UNIQUE NOT NULL,
			image_file VARCHAR(20) NOT NULL DEFAULT 'default.jpg',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id SERIAL PRIMARY KEY,
			date_posted TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			content TEXT NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users (id))`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id SERIAL PRIMARY KEY,
			post_id INTEGER REFERENCES posts (id),
			user_id INTEGER REFERENCES users (id))`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users (id),
			username VARCHAR(25) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL)`,
	}
	for _, q := range ddl {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, image_file, created_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.ImageFile, &user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, image_file, password_hash, created_at
		FROM users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.ImageFile, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, image_file, password_hash, created_at
		FROM users
		WHERE username = $1`
	err := r.db.QueryRow(query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.ImageFile, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsers retrieves up to limit users, oldest first
func (r *Repository) ListUsers(limit int) ([]*models.User, error) {
	query := `
		SELECT id, username, email, image_file, password_hash, created_at
		FROM users
		ORDER BY id
		LIMIT $1`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.ImageFile, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreatePost creates a new post in the database
func (r *Repository) CreatePost(post *models.Post) error {
	query := `
		INSERT INTO posts (content, user_id)
		VALUES ($1, $2)
		RETURNING id, date_posted`
	err := r.db.QueryRow(query, post.Content, post.UserID).
		Scan(&post.ID, &post.DatePosted)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// FindPostByID retrieves a post by id
func (r *Repository) FindPostByID(id int64) (*models.Post, error) {
	post := &models.Post{}
	query := `
		SELECT id, date_posted, content, user_id
		FROM posts
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&post.ID, &post.DatePosted, &post.Content, &post.UserID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

// ListPosts retrieves all posts in storage order
func (r *Repository) ListPosts() ([]*models.Post, error) {
	query := `
		SELECT id, date_posted, content, user_id
		FROM posts`
	return r.queryPosts(query)
}

// ListPostsSorted retrieves all posts ordered by creation time
func (r *Repository) ListPostsSorted(ascending bool) ([]*models.Post, error) {
	query := `
		SELECT id, date_posted, content, user_id
		FROM posts
		ORDER BY date_posted DESC`
	if ascending {
		query = `
		SELECT id, date_posted, content, user_id
		FROM posts
		ORDER BY date_posted ASC`
	}
	return r.queryPosts(query)
}

// ListPostsByUser retrieves all posts owned by the given user
func (r *Repository) ListPostsByUser(userID int64) ([]*models.Post, error) {
	query := `
		SELECT id, date_posted, content, user_id
		FROM posts
		WHERE user_id = $1`
	return r.queryPosts(query, userID)
}

// SearchPosts retrieves posts whose content contains the query substring.
// The match is a case-sensitive SQL LIKE.
func (r *Repository) SearchPosts(substr string) ([]*models.Post, error) {
	query := `
		SELECT id, date_posted, content, user_id
		FROM posts
		WHERE content LIKE $1`
	return r.queryPosts(query, "%"+substr+"%")
}

// DeletePost removes a post by id
func (r *Repository) DeletePost(id int64) error {
	res, err := r.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) queryPosts(query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post := &models.Post{}
		if err := rows.Scan(&post.ID, &post.DatePosted, &post.Content, &post.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// FindBookmarkByPostID retrieves the bookmark for a post, if any.
// Bookmarks are keyed by post id alone, matching the original behavior.
func (r *Repository) FindBookmarkByPostID(postID int64) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{}
	query := `
		SELECT id, post_id, user_id
		FROM bookmarks
		WHERE post_id = $1`
	err := r.db.QueryRow(query, postID).
		Scan(&bookmark.ID, &bookmark.PostID, &bookmark.UserID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bookmark: %w", err)
	}
	return bookmark, nil
}

// CreateBookmark creates a bookmark row for a post
func (r *Repository) CreateBookmark(bookmark *models.Bookmark) error {
	query := `
		INSERT INTO bookmarks (post_id, user_id)
		VALUES ($1, $2)
		RETURNING id`
	err := r.db.QueryRow(query, bookmark.PostID, bookmark.UserID).
		Scan(&bookmark.ID)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

// DeleteBookmark removes a bookmark row by id
func (r *Repository) DeleteBookmark(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM bookmarks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// CreateSession inserts a session row
func (r *Repository) CreateSession(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, username, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err := r.db.QueryRow(query, session.ID, session.UserID, session.Username, session.ExpiresAt).
		Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSessionByID retrieves a session row by id
func (r *Repository) FindSessionByID(id string) (*models.Session, error) {
	session := &models.Session{}
	query := `
		SELECT id, user_id, username, created_at, expires_at
		FROM sessions
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&session.ID, &session.UserID, &session.Username, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session row. Deleting an absent session is not an error.
func (r *Repository) DeleteSession(id string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how many
func (r *Repository) DeleteExpiredSessions() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
