package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/syncrunner/internal/api/http"
	"github.com/GriffinCanCode/syncrunner/internal/api/middleware"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/config"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/logging"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/syncrunner/internal/outbound"
	"github.com/GriffinCanCode/syncrunner/internal/runner"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	engine   *runner.Engine
	client   *outbound.Client
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	registry *prometheus.Registry
	httpSrv  *http.Server
}

// NewServer creates a new server instance. A nil logger is built from cfg.
func NewServer(cfg *config.Config, logger *logging.Logger, version string) (*Server, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing syncrunner server",
		zap.String("port", cfg.Server.Port),
		zap.String("nango_api", cfg.Nango.APIURL),
		zap.Duration("timeout", cfg.Runner.Timeout),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)
	tracer := tracing.New("syncrunner", logger.Logger)

	client := outbound.NewClient(outbound.Config{
		Timeout:      cfg.Outbound.Timeout,
		Retries:      cfg.Outbound.Retries,
		RetryWaitMin: cfg.Outbound.RetryWaitMin,
		RetryWaitMax: cfg.Outbound.RetryWaitMax,
		RateLimitRPS: cfg.Outbound.RateLimitRPS,
		UserAgent:    cfg.Outbound.UserAgent,
	},
		outbound.WithMetrics(metrics),
		outbound.WithLogger(logger.Logger),
	)

	opts := append(runner.FromConfig(cfg),
		runner.WithClient(client),
		runner.WithLogger(logger),
		runner.WithMetrics(metrics),
		runner.WithTracer(tracer),
	)
	engine := runner.New(opts...)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	h := handlers.NewHandlers(engine, client, version)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/v1/run", h.Run)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler := gzhttp.GzipHandler(router)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		handler:  handler,
		engine:   engine,
		client:   client,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
		registry: registry,
		httpSrv:  &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Engine returns the engine requests are executed on.
func (s *Server) Engine() *runner.Engine {
	return s.engine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running invocations.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	defer func() { _ = s.logger.Sync() }()
	return s.httpSrv.Shutdown(ctx)
}
