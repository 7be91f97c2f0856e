// Package httpapi exposes the listing, comparison, provider and favorites
// views over gin, plus per-session incremental loaders.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricelens/internal/backend"
	"pricelens/internal/common/config"
	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	compareproduct "pricelens/internal/loader/compare-product"
	incrementalload "pricelens/internal/loader/incremental-load"
	"pricelens/internal/models"
	filterresults "pricelens/internal/pipeline/filter-results"
	normalizeproviders "pricelens/internal/pipeline/normalize-providers"
)

const UnitName = "http-api"

type ListingSource interface {
	FetchPage(ctx context.Context, req incrementalload.PageRequest) (incrementalload.Page[models.NormalizedProduct], error)
}

type TypeaheadSource interface {
	FetchPage(ctx context.Context, req incrementalload.PageRequest) (incrementalload.Page[models.SearchHit], error)
}

type Comparer interface {
	Execute(ctx context.Context, input *compareproduct.Input) (*compareproduct.Output, error)
}

type ProviderBackend interface {
	Providers(ctx context.Context, req backend.ProviderRequest) ([]normalizeproviders.RawProvider, error)
}

type FavoritesStore interface {
	List(ctx context.Context, user string) ([]string, error)
	Add(ctx context.Context, user, productID string) ([]string, error)
	Remove(ctx context.Context, user, productID string) ([]string, error)
}

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators behind the routes. A nil collaborator leaves
// its routes unregistered.
type Deps struct {
	Search             *incrementalload.Config
	Listing            ListingSource
	Typeahead          TypeaheadSource
	Pipeline           *filterresults.Pipeline
	Compare            Comparer
	Providers          ProviderBackend
	ProviderNormalizer *normalizeproviders.Handler
	Favorites          FavoritesStore
	Sessions           *incrementalload.Sessions[models.NormalizedProduct]
	Checks             []ReadinessCheck
}

type Server struct {
	config config.ServerConfig
	deps   Deps
	engine *gin.Engine
	http   *http.Server
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func New(cfg config.ServerConfig, deps Deps, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if deps.Search == nil {
		deps.Search = incrementalload.LoadConfig()
	}
	if deps.Pipeline == nil {
		deps.Pipeline = filterresults.NewPipeline(nil)
	}
	if deps.Providers != nil && deps.ProviderNormalizer == nil {
		deps.ProviderNormalizer = normalizeproviders.NewHandler(log)
	}

	log = logger.ForComponent(log, UnitName)
	s := &Server{
		config: cfg,
		deps:   deps,
		engine: gin.New(),
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), requestLogger(s.logger))

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	if s.config.RequestsPerSecond > 0 {
		api.Use(rateLimit(s.config.RequestsPerSecond, s.config.Burst))
	}

	if s.deps.Listing != nil {
		api.GET("/listing", s.handleListing)
	}
	if s.deps.Typeahead != nil {
		api.GET("/typeahead", s.handleTypeahead)
	}
	if s.deps.Compare != nil {
		api.GET("/compare", s.handleCompare)
	}
	if s.deps.Providers != nil {
		api.GET("/providers", s.handleProviders)
	}
	if s.deps.Favorites != nil {
		fav := api.Group("/favorites")
		fav.GET("/:user", s.handleListFavorites)
		fav.PUT("/:user/:product", s.handleAddFavorite)
		fav.DELETE("/:user/:product", s.handleRemoveFavorite)
	}
	if s.deps.Sessions != nil {
		sess := api.Group("/sessions")
		sess.POST("", s.handleCreateSession)
		sess.GET("/:id", s.withSession(s.handleSessionView))
		sess.DELETE("/:id", s.handleCloseSession)
		sess.POST("/:id/query", s.withSession(s.handleSessionQuery))
		sess.POST("/:id/category", s.withSession(s.handleSessionCategory))
		sess.POST("/:id/filter", s.withSession(s.handleSessionFilter))
		sess.POST("/:id/more", s.withSession(s.handleSessionMore))
		sess.POST("/:id/rendered", s.withSession(s.handleSessionRendered))
		sess.POST("/:id/refresh", s.withSession(s.handleSessionRefresh))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.config.Address})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, check := range s.deps.Checks {
		if err := check.Check(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
