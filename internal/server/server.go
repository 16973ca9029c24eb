package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/manifest"
	"github.com/michaelbrown/mcpskill/internal/storage"
)

// Server is the HTTP server for the dispatch API.
type Server struct {
	dispatcher *dispatch.Dispatcher
	store      storage.Store
	calls      *CallTracker
	health     *HealthMonitor
	manifest   manifest.Component
	router     chi.Router
	http       *http.Server
}

// New creates a new Server. The dispatcher is expected to record calls in
// store through storage.Hook.
func New(d *dispatch.Dispatcher, store storage.Store) *Server {
	command := []string{"mcpskill", "call", "--stdin"}
	if exe, err := os.Executable(); err == nil {
		command[0] = exe
	}

	s := &Server{
		dispatcher: d,
		store:      store,
		calls:      NewCallTracker(),
		health:     NewHealthMonitor(d),
		manifest:   manifest.Build(command...),
		router:     chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler { return s.router }

// Health returns the server's health monitor.
func (s *Server) Health() *HealthMonitor { return s.health }

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		// WebSocket (no JSON content-type)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)

			// Servers
			r.Get("/servers", s.handleListServers)
			r.Get("/servers/{name}/tools", s.handleListTools)

			// Dispatch
			r.Post("/dispatch", s.handleDispatch)

			// History
			r.Get("/calls", s.handleListCalls)
			r.Get("/calls/active", s.handleActiveCalls)
			r.Delete("/calls/active/{id}", s.handleCancelCall)
			r.Get("/calls/{id}", s.handleGetCall)
			r.Delete("/calls/{id}", s.handleDeleteCall)

			r.Get("/health", s.handleHealth)
			r.Get("/manifest", s.handleManifest)
		})
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("mcpskill server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown cancels in-flight calls and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	s.calls.CloseAll()
	s.health.Stop()

	if s.http == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
