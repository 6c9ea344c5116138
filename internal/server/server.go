package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/sandbox"
	"github.com/cruciblelabs/crucible/internal/storage"
)

// Server is the HTTP front of the execution sandbox.
type Server struct {
	cfg    *config.Config
	engine sandbox.Engine
	store  storage.Store
	router chi.Router
	http   *http.Server
}

// New creates a new Server. store may be storage.NopStore{} when
// execution history is disabled.
func New(cfg *config.Config, engine sandbox.Engine, store storage.Store) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  store,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// The browser editor posts here.
	r.Post("/execute", s.handleExecute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/execute/ws", s.handleExecuteWS)
		r.Get("/executions", s.handleListExecutions)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Static playground assets, when configured.
	r.Handle("/*", staticHandler(s.cfg.Server.PublicDir))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.router,
	}

	log.Printf("crucible listening on http://%s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
