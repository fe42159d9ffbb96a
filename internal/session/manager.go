package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vkdev/tweeter-service/internal/models"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "tweeter_session"

// Store is the subset of the repository the session manager needs.
type Store interface {
	CreateSession(session *models.Session) error
	FindSessionByID(id string) (*models.Session, error)
	DeleteSession(id string) error
	FindUserByUsername(username string) (*models.User, error)
}

// Manager issues and resolves login sessions. Sessions live server-side;
// the client holds only an HS256-signed token whose jti names the row.
// The token is never trusted on its own: every resolution re-reads the
// session row and re-derives the user from the store.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
}

// NewManager initializes a session manager
func NewManager(store Store, secret string, ttl time.Duration, log *logrus.Logger) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, log: log}
}

// Start creates a session for the user and returns the signed token
func (m *Manager) Start(user *models.User) (string, error) {
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.store.CreateSession(sess); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatInt(user.ID, 10),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	})
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	m.log.Infof("Session started for %s", user.Username)
	return tokenString, nil
}

// Clear deletes the session referenced by the token. Unparseable or
// already-cleared tokens are a no-op.
func (m *Manager) Clear(tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil
	}
	return m.store.DeleteSession(claims.ID)
}

// CurrentUser resolves the token to a live user. Any broken link in the
// chain (bad signature, missing or expired session row, deleted user)
// yields not-authenticated rather than an error.
func (m *Manager) CurrentUser(tokenString string) (*models.User, bool) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, false
	}

	sess, err := m.store.FindSessionByID(claims.ID)
	if err != nil {
		return nil, false
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, false
	}

	user, err := m.store.FindUserByUsername(sess.Username)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (m *Manager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("session token has no id")
	}
	return claims, nil
}
