package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vkdev/tweeter-service/internal/models"
	"github.com/vkdev/tweeter-service/internal/session"
)

type contextKey string

const (
	userKey  contextKey = "currentUser"
	tokenKey contextKey = "sessionToken"
)

// SessionGuard gates protected routes. A request without a resolvable
// session is redirected to the login entry point before the wrapped
// handler runs, so unauthenticated requests cause no side effects.
func SessionGuard(mgr *session.Manager, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				log.Warnf("Unauthorized request to %s, please login", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			user, ok := mgr.CurrentUser(cookie.Value)
			if !ok {
				log.Warnf("Unauthorized request to %s, please login", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover converts a panic in any handler into a plain 500 response
// instead of letting it take the process down or leak a stack trace.
func Recover(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorf("Panic serving %s: %v", r.URL.Path, rec)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// UserFrom returns the authenticated user placed in the context by SessionGuard.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// TokenFrom returns the raw session token for the current request, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
