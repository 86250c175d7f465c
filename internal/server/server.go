package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/auth"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/cache"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/db"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/handlers"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/logging"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/metrics"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/services"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend holds the storage connections and services shared by the HTTP
// server and the operator commands.
type Backend struct {
	DB       *sql.DB
	Redis    *redis.Client
	Accounts *services.UserService
	Board    *services.ContentService
}

// OpenBackend connects the configured repositories. A nil recorder disables
// mutation metrics.
func OpenBackend(ctx context.Context, cfg config.Config, l *zap.Logger, recorder services.MutationRecorder) (*Backend, error) {
	b := &Backend{}

	var (
		users    services.UserRepository
		contents services.ContentRepository
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		users = store.NewMemoryUserRepository()
		contents = store.NewMemoryContentRepository()
	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		b.DB = conn
		users = store.NewUserRepository(conn)
		contents = store.NewContentRepository(conn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	var authors services.AuthorCache
	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Redis = rdb
		authors = cache.NewRedisAuthors(rdb, cfg.Redis.TTL, l)
	}

	opts := []services.ContentOption{services.WithAuthorCache(authors)}
	if recorder != nil {
		opts = append(opts, services.WithMutationRecorder(recorder))
	}
	b.Accounts = services.NewUserService(users, auth.NewHasher(cfg.Auth.PasswordIterations), authors)
	b.Board = services.NewContentService(contents, users, opts...)
	return b, nil
}

// Ping checks the database connection when there is one.
func (b *Backend) Ping(ctx context.Context) error {
	if b.DB == nil {
		return nil
	}
	return b.DB.PingContext(ctx)
}

// Close releases every open connection.
func (b *Backend) Close() error {
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.DB != nil {
		errs = append(errs, b.DB.Close())
	}
	return errors.Join(errs...)
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	backend    *Backend
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New wires the backend, bootstraps the admin account and builds the router.
func New(ctx context.Context, cfg config.Config, l *zap.Logger) (*Server, error) {
	if l == nil {
		l = zap.NewNop()
	}
	m := metrics.New()

	backend, err := OpenBackend(ctx, cfg, l, m)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if cfg.Admin.Enabled() {
		admin, created, err := backend.Accounts.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			l.Info("created admin account", zap.String("id", admin.ID), zap.String("username", admin.Username))
		}
	}

	authHandler := handlers.NewAuthHandler(backend.Accounts, tokens, l, cfg.Server.CookieSecure)
	userHandler := handlers.NewUserHandler(authHandler)
	contentHandler := handlers.NewContentHandler(backend.Board, l, cfg.Server.CookieSecure)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(l),
		middleware.Recoverer,
		m.Middleware,
		middleware.Timeout(60*time.Second),
		handlers.CORS(cfg.Server.AllowedOrigins),
	)
	router.Get("/healthz", handlers.Healthz(backend.Ping))
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Get("/", handlers.Welcome)
		handlers.AuthRouter(r, authHandler)
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, userHandler)
		})
		handlers.ContentRouter(r, contentHandler, authHandler.RequireAuth)
	})

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		backend:    backend,
		metrics:    m,
		logger:     l,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Backend exposes the services the server runs on.
func (s *Server) Backend() *Backend {
	return s.backend
}

// Metrics exposes the server's metrics registry.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.backend.Close())
}
