package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stillcare/carefront/internal/logging"
	"github.com/stillcare/carefront/internal/metrics"
	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/forms"
	"github.com/stillcare/carefront/pkg/render"
	"github.com/stillcare/carefront/pkg/render/html"
	"github.com/stillcare/carefront/pkg/rules"
)

// Submitter forwards collected values to the backend. *dataservice.Client
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, endpoint string, values map[string]any) (map[string]any, error)
}

// Deps are the collaborators a Server is built from. Catalogue and Rules
// are required.
type Deps struct {
	Catalogue *forms.Catalogue
	Rules     *rules.Store
	Submitter Submitter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// TemplatesDir holds optional replacements for the bundled markup.
	TemplatesDir string
}

// Server serves forms, their live field states and submissions.
type Server struct {
	catalogue  *forms.Catalogue
	disclosers map[string]*disclosure.Discloser
	renderers  *render.Registry
	submitter  Submitter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	router     chi.Router
}

// New wires the router. One discloser per rule table is built up front and
// shared by all requests.
func New(deps Deps) (*Server, error) {
	if deps.Catalogue == nil || deps.Rules == nil {
		return nil, errors.New("server: catalogue and rules are required")
	}
	logger := logging.OrNop(deps.Logger)

	htmlRenderer, err := html.New(html.WithTemplatesDir(deps.TemplatesDir))
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	renderers, err := render.NewRegistry(htmlRenderer, render.JSON{})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		catalogue:  deps.Catalogue,
		disclosers: make(map[string]*disclosure.Discloser),
		renderers:  renderers,
		submitter:  deps.Submitter,
		metrics:    deps.Metrics,
		logger:     logger,
	}

	var opts []disclosure.Option
	if s.metrics != nil {
		opts = append(opts, disclosure.WithObserver(s.metrics.ObserveDisclosure))
	}
	for _, id := range deps.Rules.Forms() {
		if _, err := s.catalogue.Form(id); err != nil {
			return nil, fmt.Errorf("server: rules for %q: %w", id, err)
		}
		d, err := deps.Rules.Discloser(id, opts...)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.disclosers[id] = d
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	var observe func(method, route string, status int)
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}
	r.Use(RequestID)
	r.Use(Logger(s.logger, observe))
	r.Use(Recover(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	h := &formHandler{server: s}
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{formID}", h.Show)
		r.Post("/{formID}", h.Submit)
		r.Post("/{formID}/state", h.State)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting form service", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down form service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("form service stopped")
	return nil
}
