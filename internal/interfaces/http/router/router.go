// Package router 提供 HTTP 路由配置
package router

import (
	"rfp-bot/internal/config"
	"rfp-bot/internal/domain/repository"
	"rfp-bot/internal/interfaces/http/handler"
	"rfp-bot/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由依赖
type Deps struct {
	Index     repository.ProposalIndex
	Artifacts repository.ArtifactStore
	// Redis 为 nil 时就绪检查跳过 redis
	Redis handler.Pinger
	// Limiter 为 nil 时不限流
	Limiter    middleware.RateLimiter
	LimiterKey middleware.KeyFunc
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   Deps
}

// New 创建新的路由器
func New(cfg *config.Config, deps Deps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
		deps:   deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

func (r *Router) setupRoutes() {
	healthHandler := handler.NewHealthHandler(r.cfg.App.Version, r.cfg.Storage.ProposalsDir, r.deps.Redis)

	r.engine.GET("/health", healthHandler.Health)
	r.engine.GET("/ready", healthHandler.Ready)
	r.engine.GET("/live", healthHandler.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             r.cfg.Security.RateLimit.Burst,
	}, r.deps.Limiter, r.deps.LimiterKey)

	dashboardHandler := handler.NewDashboardHandler(
		r.deps.Index,
		r.deps.Artifacts,
		r.cfg.Storage.StaticDir,
		handler.Brand{Name: r.cfg.Brand.Name, Tagline: r.cfg.Brand.Tagline},
	)
	proposalHandler := handler.NewProposalHandler(r.deps.Index)

	site := r.engine.Group("", limit)
	RegisterSiteRoutes(site, dashboardHandler, r.cfg.Storage.StaticDir)

	v1 := r.engine.Group("/api/v1", limit)
	RegisterV1Routes(v1, proposalHandler)
}
