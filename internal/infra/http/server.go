package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/infra/auth/oidc"
	"coffeeshop/internal/infra/auth/rbac"
	"coffeeshop/internal/infra/ratelimit"
	"coffeeshop/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	drinks  *usecase.DrinkService
	store   Pinger
	metrics *metrics

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	authInitErr   error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	// closers are released by Run once the listener has drained.
	closers []io.Closer
}

type ServerDeps struct {
	Drinks        *usecase.DrinkService
	Store         Pinger
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	Logger        *slog.Logger
	Registry      *prometheus.Registry
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:           cfg,
		r:             gin.New(),
		logger:        logger,
		drinks:        deps.Drinks,
		store:         deps.Store,
		metrics:       newMetrics(registry),
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
	}
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func (s *Server) initAuth() {
	if s.authorizer == nil {
		s.authorizer = rbac.NewAuthorizer()
	}
	if s.authenticator != nil {
		return
	}
	authenticator, err := oidc.NewAuthenticator(s.cfg)
	if err != nil {
		s.authInitErr = err
		s.logger.Warn("token verification unavailable; protected routes will fail", "err", err)
		return
	}
	s.authenticator = authenticator
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	s.rateLimiter = override
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
	if s.rateLimiter != nil || s.rateLimitRequests <= 0 {
		return
	}
	if s.cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(context.Background(), ratelimit.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
			Prefix:   "coffeeshop:",
		})
		if err == nil {
			s.rateLimiter = limiter
			s.closers = append(s.closers, limiter)
			return
		}
		s.logger.Warn("redis rate limiter unavailable; using in-memory limiter", "err", err)
	}
	s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
		MaxKeys: s.cfg.RateLimitMaxKeys,
	})
}

func (s *Server) routes() {
	s.r.HandleMethodNotAllowed = true
	s.r.Use(
		s.recovery(),
		requestID(),
		s.requestLogger(),
		s.metrics.middleware(),
		cors(),
	)

	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/metrics", s.metrics.handler())

	api := s.r.Group("", s.enforceRateLimit)
	{
		api.GET("/drinks", s.handleListDrinks)
		api.GET("/drinks-detail", s.guard(domain.PermDrinksDetail, s.handleListDrinksDetail))
		api.POST("/drinks", s.guard(domain.PermDrinksCreate, s.handleCreateDrink))
		api.PATCH("/drinks/:id", s.guard(domain.PermDrinksUpdate, s.handleUpdateDrink))
		api.DELETE("/drinks/:id", s.guard(domain.PermDrinksDelete, s.handleDeleteDrink))
	}

	s.r.NoRoute(s.handleNoRoute)
	s.r.NoMethod(s.handleNoMethod)
}

// Handler exposes the router, mostly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, s.Close())
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err == nil {
		err = <-errCh
	}
	return errors.Join(err, s.Close())
}

// Close releases resources the server opened itself, such as the redis client.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Server) handleHealth(c *gin.Context) {
	mode := "no-db"
	if s.store != nil {
		mode = "db"
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mode": mode})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}
