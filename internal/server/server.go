// Package server wires the development backend together: SQLite repository,
// services, handlers, middleware and routes.
//
// DEPENDENCY INJECTION FLOW:
//
//	New() creates: sqlite.DB → Auth/Job/InterviewService → handlers → chi routes
//
// This is the composition root. Nothing below it constructs its own
// dependencies, so tests can build the same graph against ":memory:".
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/jobpilot/internal/auth"
	"github.com/sakif/jobpilot/internal/handler"
	"github.com/sakif/jobpilot/internal/middleware"
	sqliteRepo "github.com/sakif/jobpilot/internal/repository/sqlite"
	"github.com/sakif/jobpilot/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	// AuthPrefix mounts the /auth routes under a prefix, e.g. "/api" serves
	// /api/auth/login. Jobs and interviews always live at the root.
	AuthPrefix string
	// PasswordCost overrides the bcrypt cost. Zero means auth.DefaultCost.
	PasswordCost int
}

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and builds the routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	POST   {prefix}/auth/register  → register, returns {token, user}
//	POST   {prefix}/auth/login     → login, returns {token, user}
//	GET    {prefix}/auth/me        → current user             [bearer]
//	GET    /jobs                   → caller's jobs            [bearer]
//	POST   /jobs                   → create job               [bearer]
//	PATCH  /jobs/{id}              → partial update           [bearer]
//	DELETE /jobs/{id}              → delete job + interviews  [bearer]
//	GET    /interviews             → caller's interviews      [bearer]
//	GET    /interviews/job/{id}    → one job's interviews     [bearer]
//	POST   /interviews             → record an interview      [bearer]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger and every handler see the same ID.
// Recoverer sits inside Logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords := auth.NewPasswordService()
	if s.config.PasswordCost > 0 {
		passwords = auth.NewPasswordServiceWithCost(s.config.PasswordCost)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	jobService := service.NewJobService(s.db, s.logger)
	interviewService := service.NewInterviewService(s.db, jobService, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	jobHandler := handler.NewJobHandler(jobService, s.logger)
	interviewHandler := handler.NewInterviewHandler(interviewService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route(authMount(s.config.AuthPrefix), func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/jobs", jobHandler.HandleList)
		r.Post("/jobs", jobHandler.HandleCreate)
		r.Patch("/jobs/{id}", jobHandler.HandleUpdate)
		r.Delete("/jobs/{id}", jobHandler.HandleDelete)

		r.Get("/interviews", interviewHandler.HandleList)
		r.Get("/interviews/job/{id}", interviewHandler.HandleForJob)
		r.Post("/interviews", interviewHandler.HandleCreate)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func authMount(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "/auth"
	}
	return "/" + prefix + "/auth"
}

// shutdownGrace bounds how long Run waits for in-flight requests.
const shutdownGrace = 30 * time.Second

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownGrace and closes the database. The caller decides what ends the
// run; the binary ties ctx to SIGINT and SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("authMount", authMount(s.config.AuthPrefix)),
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listening on port %d: %w", s.config.Port, err)

	case <-ctx.Done():
		s.logger.Info("shutting down", slog.String("cause", context.Cause(ctx).Error()))

		// ctx is already done; the drain gets a fresh deadline of its own.
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("server: draining connections: %w", err)
		}
		s.logger.Info("dev server stopped")
		return nil
	}
}
