package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vkdev/tweeter-service/internal/feed"
	"github.com/vkdev/tweeter-service/internal/middleware"
	"github.com/vkdev/tweeter-service/internal/models"
	"github.com/vkdev/tweeter-service/internal/repository"
	"github.com/vkdev/tweeter-service/internal/service"
	"github.com/vkdev/tweeter-service/internal/session"
)

// Handler wires the HTTP surface to the service layer.
type Handler struct {
	svc      *service.Service
	sessions *session.Manager
	feed     *feed.Builder
	ttl      time.Duration
	log      *logrus.Logger
}

// NewHandler initializes the HTTP handlers
func NewHandler(svc *service.Service, sessions *session.Manager, fb *feed.Builder, ttl time.Duration, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, feed: fb, ttl: ttl, log: log}
}

// Index is the landing route. Any existing session is cleared so the
// client always starts logged out.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.sessions.Clear(cookie.Value); err != nil {
			h.log.Errorf("Failed to clear session: %v", err)
		}
	}
	h.clearSessionCookie(w)
	h.log.Info("Welcome to Tweeter")
	writeJSON(w, http.StatusOK, map[string]any{"message": "Welcome to Tweeter", "logged_in": false})
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"title": "Register"})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if username == "" || email == "" || password == "" {
		h.respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	if _, err := h.svc.Register(username, email, password); err != nil {
		h.respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Login handles user authentication and starts a session on success
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"title": "Login"})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.svc.Login(email, password)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	token, err := h.sessions.Start(user)
	if err != nil {
		h.log.Errorf("Failed to start session for %s: %v", user.Username, err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Logout clears the current session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	if err := h.sessions.Clear(middleware.TokenFrom(r.Context())); err != nil {
		h.log.Errorf("Failed to clear session: %v", err)
	}
	h.clearSessionCookie(w)
	if user != nil {
		h.log.Infof("%s, you are now logged out", user.Username)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Home lists every post plus follow suggestions
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	posts, suggestions, err := h.svc.HomeTimeline(user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":              posts,
		"user":               user,
		"follow_suggestions": suggestions,
	})
}

// NewPost creates a post owned by the current user
func (h *Handler) NewPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"title": "New post"})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	content := r.PostFormValue("content")
	if content == "" {
		h.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	user, _ := middleware.UserFrom(r.Context())
	if _, err := h.svc.CreatePost(user, content); err != nil {
		h.respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Search lists posts whose content contains the submitted substring
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"title": "Search"})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed form")
		return
	}
	query := r.PostFormValue("search")

	posts, err := h.svc.Search(query)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.renderPosts(w, r, "Searched tweets containing "+query, posts)
}

// Bookmark toggles the bookmark for a post
func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.postID(w, r)
	if !ok {
		return
	}
	user, _ := middleware.UserFrom(r.Context())
	if _, err := h.svc.ToggleBookmark(user, postID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// SortAsc lists posts by creation time, oldest first
func (h *Handler) SortAsc(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.SortedPosts(true)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.renderPosts(w, r, "Tweets sorted in ascending order", posts)
}

// SortDesc lists posts by creation time, newest first
func (h *Handler) SortDesc(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.SortedPosts(false)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.renderPosts(w, r, "Tweets sorted in descending order", posts)
}

// Filter lists the current user's own posts
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	posts, err := h.svc.PostsByUser(user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.renderPosts(w, r, "Tweets filtered by current user", posts)
}

// DeleteTweet deletes a post owned by the current user
func (h *Handler) DeleteTweet(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.postID(w, r)
	if !ok {
		return
	}
	user, _ := middleware.UserFrom(r.Context())
	if err := h.svc.DeletePost(user, postID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Feed serves an Atom feed of posts, newest first
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.SortedPosts(false)
	if err != nil && !errors.Is(err, service.ErrNoPosts) {
		h.respondServiceError(w, err)
		return
	}

	doc, err := h.feed.Build(posts)
	if err != nil {
		h.log.Errorf("Failed to build feed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

func (h *Handler) renderPosts(w http.ResponseWriter, r *http.Request, title string, posts []*models.Post) {
	user, _ := middleware.UserFrom(r.Context())
	h.log.Info(title)
	writeJSON(w, http.StatusOK, map[string]any{
		"title": title,
		"posts": posts,
		"user":  user,
	})
}

func (h *Handler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["post_id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "unknown post id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		h.respondError(w, http.StatusConflict, "username or email already registered")
	case errors.Is(err, repository.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrNoPosts):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailNotFound):
		h.respondError(w, http.StatusUnauthorized, "email not found")
	case errors.Is(err, service.ErrInvalidPassword):
		h.respondError(w, http.StatusUnauthorized, "invalid password")
	case errors.Is(err, service.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "you are not authorized to delete other users posts")
	default:
		h.log.Errorf("Internal error: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		h.log.Error(msg)
	} else {
		h.log.Warn(msg)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
