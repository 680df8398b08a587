package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/tabstash/internal/browser"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures the web UI server.
type Options struct {
	Version     string
	Bind        string
	Port        int
	IdleTimeout time.Duration // view session expiry; 0 uses DefaultIdleTimeout
	Logger      *slog.Logger
}

// Server is the tabstash web UI.
type Server struct {
	*http.Server

	logger *slog.Logger
	stop   func()
}

// NewServer creates and configures the HTTP server for the tabstash web UI.
func NewServer(store Store, browsers *browser.Lazy, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h, unsubscribe := NewHandlers(ctx, store, browsers,
		NewRenderer(templateSub, opts.Version, logger),
		NewSessions(opts.IdleTimeout),
		logger)

	return &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
			Handler:           NewRouter(h, staticSub, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
		stop: func() {
			unsubscribe()
			cancel()
		},
	}, nil
}

// NewRouter mounts every UI route on a chi router.
func NewRouter(h *Handlers, static fs.FS, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(securityHeaders)

	r.Get("/", h.HandleStatus)
	r.Get("/snapshot", h.HandleSnapshot)
	r.Get("/status.json", h.HandleStatusJSON)

	r.Post("/save", h.HandleSave)
	r.Post("/restore", h.HandleRestore)

	r.Route("/groups", func(r chi.Router) {
		r.Post("/save", h.HandleSaveGroup)
		r.Post("/restore", h.HandleRestoreGroup)
		r.Post("/remove", h.HandleRemoveGroup)
		r.Post("/toggle", h.HandleToggle)
	})
	r.Route("/tabs", func(r chi.Router) {
		r.Post("/save", h.HandleSaveTab)
		r.Post("/restore", h.HandleRestoreTab)
		r.Post("/remove", h.HandleRemoveTab)
	})
	r.Post("/session/close", h.HandleCloseSession)

	if static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	}
	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one debug line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start))
		})
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *Server) error {
	defer srv.stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	srv.logger.Info("tabstash UI running", "url", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		srv.logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		srv.logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
