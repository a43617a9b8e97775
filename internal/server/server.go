// Package server exposes a monitor.Widget over HTTP: the metric items, the
// latest snapshot, and the settings exchange including connection tests.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/monitor"
)

// Defaults
const (
	DefaultProbeTimeout = 30 * time.Second
	MaxBodySize         = 1 << 20
	shutdownTimeout     = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Interval between background polls in Run. Zero disables polling.
	Interval time.Duration

	// ProbeTimeout bounds POST /api/settings/test.
	ProbeTimeout time.Duration

	Logger logger.Logger
}

// Server is the HTTP host.
type Server struct {
	widget monitor.Widget
	opts   Options
	log    logger.Logger
	router *chi.Mux
}

// New builds the router for w.
func New(w monitor.Widget, opts Options) *Server {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	s := &Server{
		widget: w,
		opts:   opts,
		log:    logger.OrDefault(opts.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.handleItems)
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/poll", s.handlePoll)
		r.Get("/tooltip", s.handleTooltip)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handlePutSettings)
			r.Post("/test", s.handleTestSettings)
		})
	})

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr and polls in the background until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if s.opts.Interval > 0 {
		go s.pollLoop(pollCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to listen on "+addr,
			"Pick a free address with --listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pollLoop polls once right away and then on every interval tick.
func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		s.widget.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// requestLogger logs each request at debug level with its request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(),
			time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}
