package adminapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"commissions/internal/admin"
	"commissions/internal/logging"
	"commissions/internal/pipelinejob"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Admin    *admin.Service
	Job      *pipelinejob.Job
	Registry *prometheus.Registry // nil disables /metrics
	Limiter  *rate.Limiter        // nil disables throttling of mutations
	Logger   *slog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	bind    string
	logger  *slog.Logger
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

// New builds the router and server. Call Start to begin listening.
func New(bind string, deps Deps) *Server {
	logger := logging.NewComponentLogger(deps.Logger, "adminapi")
	h := &handlers{admin: deps.Admin, job: deps.Job, logger: logger}

	var reg prometheus.Registerer
	if deps.Registry != nil {
		reg = deps.Registry
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(observe(logger, newHTTPMetrics(reg)))
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)

	r.Get("/healthz", h.health)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(throttle(deps.Limiter))
		api.Get("/admin", h.snapshot)

		api.Route("/characters", func(cr chi.Router) {
			cr.Post("/", h.createCharacter)
			cr.Post("/order", h.reorderCharacters)
			cr.Patch("/{id}", h.updateCharacter)
			cr.Delete("/{id}", h.deleteCharacter)
		})

		api.Route("/commissions", func(cr chi.Router) {
			cr.Post("/", h.createCommission)
			cr.Put("/{id}", h.updateCommission)
			cr.Delete("/{id}", h.deleteCommission)
		})

		api.Get("/pipeline", h.pipelineStatus)
		api.Post("/pipeline/run", h.runPipeline)
	})

	return &Server{
		bind:    bind,
		logger:  logger,
		handler: r,
		server: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits up to five seconds for
// in-flight ones.
func (s *Server) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
