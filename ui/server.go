package ui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

// ServerConfig configures the web server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":3000".
	Addr   string
	Layout Layout
	// TableName is shown in the startup banner only.
	TableName string
	Logger    *zap.Logger
	// Banner receives the startup banner. Nil disables it.
	Banner io.Writer
}

// Server is the movies demo HTTP server.
type Server struct {
	config     ServerConfig
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

func NewServer(config ServerConfig) (*Server, error) {
	if config.Addr == "" {
		return nil, errors.New("listen address is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: config.Logger,
	}
	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.router = router
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() (chi.Router, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static fs: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.index)
	r.Get("/healthz", s.health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	return r, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.printBanner(ln.Addr())
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) printBanner(addr net.Addr) {
	if s.config.Banner == nil {
		return
	}
	w := s.config.Banner
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║  %-60s║\n", truncate(s.config.Layout.Metadata.Title, 60))
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  URL: %-56s║\n", truncate("http://"+addr.String(), 56))
	if s.config.TableName != "" {
		fmt.Fprintf(w, "║  Table: %-54s║\n", truncate(s.config.TableName, 54))
	}
	fmt.Fprintln(w, "║  Press Ctrl+C to stop                                        ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
