// Package server implements the PDF render service: a single JSON endpoint
// that prints a complete HTML document with headless Chrome.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultRenderTimeout bounds one render.
const DefaultRenderTimeout = 60 * time.Second

// Printer prints a complete HTML document to PDF.
type Printer interface {
	PrintHTML(ctx context.Context, documentHTML string) ([]byte, error)
}

// Options configures a Server.
type Options struct {
	AllowedOrigin string        // Access-Control-Allow-Origin, default "*"
	Timeout       time.Duration // per render, default DefaultRenderTimeout
	Logger        *slog.Logger
}

// Server is the render service. It holds no per-request state.
type Server struct {
	printer Printer
	opts    Options
}

// New creates a Server printing with p.
func New(p Printer, opts Options) *Server {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRenderTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{printer: p, opts: opts}
}

// Handler returns the routed service.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found", Details: "Unsupported path"})
	})
	r.HandleFunc("/", s.handleRender)
	r.HandleFunc("/render-pdf", s.handleRender)

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully,
// letting in-flight renders finish within the render timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("render service listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request with its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		begin := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Info("request",
			"request_id", requestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(begin),
		)
	})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
