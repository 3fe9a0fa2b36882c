package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dapperAuteur/my-health-blueprint/internal/email"
	"github.com/dapperAuteur/my-health-blueprint/internal/handler"
	"github.com/dapperAuteur/my-health-blueprint/internal/middleware"
	"github.com/dapperAuteur/my-health-blueprint/internal/store"
	ws "github.com/dapperAuteur/my-health-blueprint/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	userH       *handler.UserHandler
	blueprintH  *handler.BlueprintHandler
	tokenStore  *store.TokenStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	tokenStore := store.NewTokenStore(db)
	blueprintStore := store.NewBlueprintStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, tokenStore, emailClient, logger.With("component", "auth")),
		userH:       handler.NewUserHandler(userStore, logger.With("component", "user")),
		blueprintH:  handler.NewBlueprintHandler(blueprintStore, hub, logger.With("component", "blueprint")),
		tokenStore:  tokenStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// TokenStore returns the token store for the expired-token reaper.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/magic-link", s.rateLimited(s.authH.MagicLink))
	mux.HandleFunc("POST /auth/verify", s.rateLimited(s.authH.Verify))
	mux.HandleFunc("GET /users/{userId}", s.userH.Get)
	mux.HandleFunc("GET /health-blueprint/{userId}", s.blueprintH.Get)
	mux.HandleFunc("POST /health-blueprint", s.blueprintH.Save)
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
	mux.HandleFunc("GET /health", s.healthHandler)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
