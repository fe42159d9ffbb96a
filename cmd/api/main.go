package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vkdev/tweeter-service/internal/config"
	"github.com/vkdev/tweeter-service/internal/feed"
	"github.com/vkdev/tweeter-service/internal/handler"
	"github.com/vkdev/tweeter-service/internal/middleware"
	"github.com/vkdev/tweeter-service/internal/repository"
	"github.com/vkdev/tweeter-service/internal/service"
	"github.com/vkdev/tweeter-service/internal/session"
	"github.com/vkdev/tweeter-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		logger.Fatalf("Failed to ensure schema: %v", err)
	}

	var mailer service.Mailer
	if cfg.SMTPHost != "" {
		mailer = email.NewSender(cfg, logger)
	}
	svc := service.NewService(repo, logger, mailer)
	sessions := session.NewManager(repo, cfg.SessionSecret, cfg.SessionTTL, logger)
	fb := feed.NewBuilder(cfg.FeedTitle, cfg.BaseURL)
	h := handler.NewHandler(svc, sessions, fb, cfg.SessionTTL, logger)

	// Expired sessions are swept in the background
	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() {
		n, err := repo.DeleteExpiredSessions()
		if err != nil {
			logger.Errorf("Failed to purge expired sessions: %v", err)
			return
		}
		if n > 0 {
			logger.Infof("Purged %d expired sessions", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule session purge: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.Recover(logger))
	// Public routes
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("GET", "POST")
	r.HandleFunc("/login", h.Login).Methods("GET", "POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.SessionGuard(sessions, logger))
	authRouter.HandleFunc("/home", h.Home).Methods("GET")
	authRouter.HandleFunc("/logout", h.Logout).Methods("GET")
	authRouter.HandleFunc("/new_post", h.NewPost).Methods("GET", "POST")
	authRouter.HandleFunc("/search", h.Search).Methods("GET", "POST")
	authRouter.HandleFunc("/bookmark/{post_id:[0-9]+}", h.Bookmark).Methods("GET")
	authRouter.HandleFunc("/sortAsc", h.SortAsc).Methods("GET")
	authRouter.HandleFunc("/sortDesc", h.SortDesc).Methods("GET")
	authRouter.HandleFunc("/filter", h.Filter).Methods("GET")
	authRouter.HandleFunc("/delete_tweet/{post_id:[0-9]+}", h.DeleteTweet).Methods("GET")
	authRouter.HandleFunc("/feed", h.Feed).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
