package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/BlackMission/collectivelink/internal/auth"
	"github.com/BlackMission/collectivelink/internal/handler"
	"github.com/BlackMission/collectivelink/internal/logging"
	"github.com/BlackMission/collectivelink/internal/state"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// Deps holds the flow's collaborators.
type Deps struct {
	Binder     *state.Binder
	Collective auth.Collective
	Discord    auth.RoleConnections
	Notifier   auth.Notifier
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// New creates a new Server with all routes wired.
func New(cfg Config, deps Deps) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health(cfg.Version))
	mux.HandleFunc("GET /linked-role", handler.LinkedRole(deps.Binder, deps.Collective))
	mux.HandleFunc("GET /open-collective/redirect", handler.CollectiveCallback(deps.Binder, deps.Collective, deps.Discord))
	mux.HandleFunc("GET /discord/redirect", handler.DiscordCallback(deps.Binder, deps.Discord, deps.Notifier))
	mux.HandleFunc("GET /success", handler.Success())
	mux.HandleFunc("GET /error", handler.Error())
	mux.HandleFunc("/", handler.NotFound())

	logged := requestMiddleware(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		handler: logged,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      logged,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening and serving.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	logging.Info("Server", "Listening on %s", s.httpServer.Addr)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestMiddleware assigns each request an id, echoes it in the response
// and logs the request once it completes.
func requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(handler.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		r.Header.Set(handler.RequestIDHeader, id)
		w.Header().Set(handler.RequestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logging.Request(id, r.Method, r.URL.Path, sw.status, time.Since(start).String())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
