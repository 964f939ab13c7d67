package router

import (
	"context"
	"net/http"
	"time"

	apphttp "delivery_price_calculator/internal/http"
	"delivery_price_calculator/platform/httpkit"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const healthTimeout = 2 * time.Second

// New builds the gin engine with shared middleware and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	cfg := app.Config
	log := app.Logger

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.CORS(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), log)
	engine.Use(limiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				log.WithContext(c.Request.Context()).Error("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	rc := &apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: v1,
		Config:    cfg,
	}
	if cfg.IsAuthEnabled() {
		rc.Protected = v1.Group("", httpkit.AuthRequired(cfg))
		rc.Admin = rc.Protected.Group("/admin", httpkit.RequireRole("admin"))
	} else {
		log.Warn("JWT_ACCESS_SECRET not configured; routes are unauthenticated and admin routes are disabled")
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		log.Info("module registered", "module", module.Name())
	}

	return engine
}
