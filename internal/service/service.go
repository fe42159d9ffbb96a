package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vkdev/tweeter-service/internal/auth"
	"github.com/vkdev/tweeter-service/internal/models"
	"github.com/vkdev/tweeter-service/internal/repository"
)

// Outcomes the handlers translate into HTTP statuses.
var (
	ErrEmailNotFound   = errors.New("email not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrForbidden       = errors.New("forbidden")
	ErrNoPosts         = errors.New("no tweets to display")
)

// FollowSuggestionLimit caps the users offered on the home timeline.
const FollowSuggestionLimit = 7

// Store is the persistence surface the service needs.
type Store interface {
	CreateUser(user *models.User) error
	FindUserByEmail(email string) (*models.User, error)
	ListUsers(limit int) ([]*models.User, error)

	CreatePost(post *models.Post) error
	FindPostByID(id int64) (*models.Post, error)
	ListPosts() ([]*models.Post, error)
	ListPostsSorted(ascending bool) ([]*models.Post, error)
	ListPostsByUser(userID int64) ([]*models.Post, error)
	SearchPosts(substr string) ([]*models.Post, error)
	DeletePost(id int64) error

	FindBookmarkByPostID(postID int64) (*models.Bookmark, error)
	CreateBookmark(bookmark *models.Bookmark) error
	DeleteBookmark(id int64) error
}

// Mailer sends user-facing notifications.
type Mailer interface {
	SendWelcome(to, username string) error
}

// Service handles business logic
type Service struct {
	store  Store
	log    *logrus.Logger
	mailer Mailer
}

// NewService initializes a new service. mailer may be nil to disable
// outbound mail.
func NewService(store Store, log *logrus.Logger, mailer Mailer) *Service {
	return &Service{store: store, log: log, mailer: mailer}
}

// Register creates a new user with hashed password. The welcome mail is
// best-effort and never fails the registration.
func (s *Service) Register(username, email, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(user.Email, user.Username); err != nil {
			s.log.Warnf("Failed to send welcome mail to %s: %v", user.Email, err)
		}
	}

	s.log.Infof("%s, you are now registered and can log in", user.Username)
	return user, nil
}

// Login authenticates by email and password. The two failure modes are
// distinct outcomes so the login page can tell them apart; neither
// creates any session state.
func (s *Service) Login(email, password string) (*models.User, error) {
	user, err := s.store.FindUserByEmail(strings.ToLower(email))
	if err != nil {
		return nil, ErrEmailNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	s.log.Infof("%s logged in successfully", user.Username)
	return user, nil
}

// HomeTimeline returns every post plus up to seven follow suggestions,
// excluding the current user from the suggestions.
func (s *Service) HomeTimeline(current *models.User) ([]*models.Post, []*models.User, error) {
	posts, err := s.store.ListPosts()
	if err != nil {
		return nil, nil, err
	}
	if len(posts) == 0 {
		return nil, nil, ErrNoPosts
	}

	candidates, err := s.store.ListUsers(FollowSuggestionLimit)
	if err != nil {
		return nil, nil, err
	}
	suggestions := make([]*models.User, 0, len(candidates))
	for _, u := range candidates {
		if u.ID == current.ID {
			continue
		}
		suggestions = append(suggestions, u)
	}
	return posts, suggestions, nil
}

// CreatePost creates a post owned by the given user
func (s *Service) CreatePost(user *models.User, content string) (*models.Post, error) {
	post := &models.Post{
		Content: content,
		UserID:  user.ID,
	}
	if err := s.store.CreatePost(post); err != nil {
		return nil, err
	}
	s.log.Infof("New post %d created by %s", post.ID, user.Username)
	return post, nil
}

// Search returns posts whose content contains the substring
func (s *Service) Search(query string) ([]*models.Post, error) {
	posts, err := s.store.SearchPosts(query)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("no results for tweets containing %q: %w", query, ErrNoPosts)
	}
	return posts, nil
}

// SortedPosts returns all posts ordered by creation time
func (s *Service) SortedPosts(ascending bool) ([]*models.Post, error) {
	posts, err := s.store.ListPostsSorted(ascending)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}
	return posts, nil
}

// PostsByUser returns the posts owned by the given user
func (s *Service) PostsByUser(user *models.User) ([]*models.Post, error) {
	posts, err := s.store.ListPostsByUser(user.ID)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}
	return posts, nil
}

// ToggleBookmark adds a bookmark for the post, or removes the existing
// one. Lookup is by post id alone, so the toggle acts on the same row no
// matter which user created it. Returns true when a bookmark was added.
func (s *Service) ToggleBookmark(user *models.User, postID int64) (bool, error) {
	if _, err := s.store.FindPostByID(postID); err != nil {
		return false, err
	}

	existing, err := s.store.FindBookmarkByPostID(postID)
	if err == nil {
		if err := s.store.DeleteBookmark(existing.ID); err != nil {
			return false, err
		}
		s.log.Infof("Bookmark for post %d removed", postID)
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	bookmark := &models.Bookmark{PostID: postID, UserID: user.ID}
	if err := s.store.CreateBookmark(bookmark); err != nil {
		return false, err
	}
	s.log.Infof("Bookmark for post %d added", postID)
	return true, nil
}

// DeletePost deletes the post if the acting user owns it. A foreign
// actor gets ErrForbidden and the post is left untouched.
func (s *Service) DeletePost(user *models.User, postID int64) error {
	post, err := s.store.FindPostByID(postID)
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		s.log.Warnf("%s is not authorized to delete post %d", user.Username, postID)
		return ErrForbidden
	}
	if err := s.store.DeletePost(postID); err != nil {
		return err
	}
	s.log.Infof("Post %d deleted by %s", postID, user.Username)
	return nil
}
