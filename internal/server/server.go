package server

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Paul1298/GPyOpt/internal/config"
	"github.com/Paul1298/GPyOpt/internal/logging"
	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/acqopt"
	"github.com/Paul1298/GPyOpt/internal/optimization/acquisition"
	"github.com/Paul1298/GPyOpt/internal/optimization/backend"
	"github.com/Paul1298/GPyOpt/internal/optimization/bayesian"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSpace sets the design space used by requests that carry none.
func WithSpace(sp *space.Space) Option {
	return func(s *Server) { s.space = sp }
}

// WithMetrics sets the collectors updated by every acquisition optimization.
func WithMetrics(m *acqopt.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer sets the registry served on /metrics. The default is the
// Prometheus default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithZapLogger sets the logger handed to the optimization packages.
func WithZapLogger(l *zap.Logger) Option {
	return func(s *Server) { s.zap = l }
}

// Server implements the HTTP and JSON-RPC endpoints of the suggestion
// service. Requests without a space share one Suggester built over the
// default space; requests with their own space get a fresh one.
type Server struct {
	cfg      *config.Config
	logger   Logger
	zap      *zap.Logger
	space    *space.Space
	metrics  *acqopt.Metrics
	gatherer prometheus.Gatherer

	// suggester serves the default space. It is nil without one.
	suggester *bayesian.Suggester
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		zap:      zap.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.optimizerOptions(); err != nil {
		return nil, err
	}
	if _, err := acquisition.New(cfg.Acquisition.Function, 0, cfg.AcquisitionParam()); err != nil {
		return nil, err
	}
	if s.space != nil {
		sg, err := s.newSuggester(s.space)
		if err != nil {
			return nil, fmt.Errorf("default space: %w", err)
		}
		s.suggester = sg
	}
	return s, nil
}

// suggesterConfig maps the environment onto the suggester settings.
func (s *Server) suggesterConfig() bayesian.SuggesterConfig {
	return bayesian.SuggesterConfig{
		Kernel:           s.cfg.Model.Kernel,
		LengthScale:      s.cfg.Model.LengthScale,
		SignalVar:        s.cfg.Model.SignalVar,
		NoiseVar:         s.cfg.Model.NoiseVar,
		Acquisition:      s.cfg.Acquisition.Function,
		AcquisitionParam: s.cfg.AcquisitionParam(),
		Seed:             s.cfg.Acquisition.Seed,
		Logger:           s.zap,
	}
}

func (s *Server) optimizerOptions() ([]acqopt.Option, error) {
	if !slices.Contains(backend.Names(), s.cfg.Acquisition.Optimizer) {
		return nil, optimization.WrapErrorf(optimization.ErrUnsupportedOptimizer, "%q", s.cfg.Acquisition.Optimizer)
	}
	logic, err := acqopt.ParseAnchorLogic(s.cfg.Acquisition.AnchorLogic)
	if err != nil {
		return nil, err
	}
	return []acqopt.Option{
		acqopt.WithOptimizer(s.cfg.Acquisition.Optimizer),
		acqopt.WithAnchorLogic(logic),
		acqopt.WithNumAnchors(s.cfg.Acquisition.NumAnchors),
		acqopt.WithNumSamples(s.cfg.Acquisition.NumSamples),
		acqopt.WithWorkers(s.cfg.Acquisition.Workers),
		acqopt.WithTimeout(s.cfg.Acquisition.Timeout),
		acqopt.WithMetrics(s.metrics),
	}, nil
}

func (s *Server) newSuggester(sp *space.Space) (*bayesian.Suggester, error) {
	opts, err := s.optimizerOptions()
	if err != nil {
		return nil, err
	}
	return bayesian.NewSuggester(sp, s.suggesterConfig(), opts...)
}

// RegisterRoutes mounts the API and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/suggest", s.handleSuggest)
		r.Get("/diagnostics", s.handleDiagnostics)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Handler returns the complete router: request IDs, logging and panic
// recovery around the API, plus /healthz and /metrics.
func (s *Server) Handler(logger *logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger,
		logging.WithSlowThreshold(s.cfg.HTTP.SlowRequest),
		logging.WithQuietPaths("/healthz", "/metrics"),
	))
	r.Use(Recoverer(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.RegisterRoutes(r)
	return r
}
