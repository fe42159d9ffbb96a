package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkdev/tweeter-service/internal/models"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewRepository(db), mock, db
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "image_file", "created_at"}).
		AddRow(int64(1), "default.jpg", "2024-01-01T00:00:00Z")
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", "hash").
		WillReturnRows(rows)

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(user))
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "default.jpg", user.ImageFile)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestFindUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, email, image_file, password_hash, created_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByEmail("nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindUserByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "image_file", "password_hash", "created_at"}).
		AddRow(int64(7), "alice", "alice@example.com", "default.jpg", "hash", "2024-01-01T00:00:00Z")
	mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := repo.FindUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestSearchPosts_WildcardsQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "date_posted", "content", "user_id"}).
		AddRow(int64(1), now, "go is fun", int64(2))
	mock.ExpectQuery(`FROM posts\s+WHERE content LIKE \$1`).
		WithArgs("%go%").
		WillReturnRows(rows)

	posts, err := repo.SearchPosts("go")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "go is fun", posts[0].Content)
}

func TestListPostsSorted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`ORDER BY date_posted ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date_posted", "content", "user_id"}).
			AddRow(int64(1), now, "first", int64(1)))
	mock.ExpectQuery(`ORDER BY date_posted DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date_posted", "content", "user_id"}).
			AddRow(int64(2), now, "last", int64(1)))

	asc, err := repo.ListPostsSorted(true)
	require.NoError(t, err)
	require.Len(t, asc, 1)

	desc, err := repo.ListPostsSorted(false)
	require.NoError(t, err)
	require.Len(t, desc, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePost(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeletePost(10))
}

func TestDeletePost_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.DeletePost(10), ErrNotFound)
}

func TestFindBookmarkByPostID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM bookmarks\s+WHERE post_id = \$1`).
		WithArgs(int64(10)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBookmarkByPostID(10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBookmarkToggleQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO bookmarks`).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(`DELETE FROM bookmarks WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	bookmark := &models.Bookmark{PostID: 10, UserID: 2}
	require.NoError(t, repo.CreateBookmark(bookmark))
	assert.Equal(t, int64(5), bookmark.ID)
	require.NoError(t, repo.DeleteBookmark(bookmark.ID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndFindSession(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	expires := created.Add(time.Hour)
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs("sid-1", int64(2), "alice", expires).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectQuery(`FROM sessions\s+WHERE id = \$1`).
		WithArgs("sid-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "created_at", "expires_at"}).
			AddRow("sid-1", int64(2), "alice", created, expires))

	sess := &models.Session{ID: "sid-1", UserID: 2, Username: "alice", ExpiresAt: expires}
	require.NoError(t, repo.CreateSession(sess))

	got, err := repo.FindSessionByID("sid-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, int64(2), got.UserID)
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEnsureSchema(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	for range [4]struct{}{} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, repo.EnsureSchema())
	require.NoError(t, mock.ExpectationsWereMet())
}
