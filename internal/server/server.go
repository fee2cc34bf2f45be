package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	collectordomain "github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"github.com/subsidytracker/subsidytracker/internal/config"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	subsidies subsidydomain.Repository
	logs      logdomain.Repository
	runner    collectordomain.Runner
	log       *zap.Logger
}

type Params struct {
	fx.In

	Engine    *gin.Engine
	Config    config.Config
	Subsidies subsidydomain.Repository
	Logs      logdomain.Repository
	Runner    collectordomain.Runner
	Log       *zap.Logger
}

func NewServer(p Params) *Server {
	return &Server{
		engine:    p.Engine,
		cfg:       p.Config,
		subsidies: p.Subsidies,
		logs:      p.Logs,
		runner:    p.Runner,
		log:       p.Log.Named("server"),
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	subsidies := api.Group("/subsidies")
	subsidies.GET("", s.ListSubsidies)
	subsidies.GET("/search", s.SearchSubsidies)
	subsidies.GET("/:id", s.GetSubsidy)

	regions := api.Group("/regions")
	regions.GET("", s.ListRegions)
	regions.GET("/:id/children", s.GetRegionChildren)

	api.GET("/categories", s.ListCategories)

	collection := api.Group("/collection")
	collection.GET("/logs", s.GetCollectionLogs)
	collection.GET("/sources", s.GetCollectionSources)
	collection.POST("/trigger/:sourceName", s.TriggerCollection)
}
