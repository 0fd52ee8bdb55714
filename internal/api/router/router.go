package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"course-planner/config"
	"course-planner/internal/api/handler"
	"course-planner/internal/api/middleware"
)

// maxBodyBytes 请求体上限；所有接口都只接收小型 JSON
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不启用限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	rateLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程目录模块
		catalog := v1.Group("/catalog")
		{
			catalog.GET("", h.Catalog.GetCatalog)
			catalog.POST("/load", rateLimit, h.Catalog.Load)
			catalog.GET("/courses", h.Catalog.ListCourses)
			catalog.GET("/courses/:id", h.Catalog.GetCourse)
		}

		// 规划会话模块
		sessions := v1.Group("/planner/sessions")
		sessions.Use(rateLimit)
		{
			sessions.POST("", h.Planner.CreateSession)
			sessions.GET("/:id", h.Planner.GetSession)
			sessions.DELETE("/:id", h.Planner.DeleteSession)
			sessions.POST("/:id/toggle", h.Planner.Toggle)
			sessions.PUT("/:id/sections", h.Planner.ChooseSection)
			sessions.PUT("/:id/preview", h.Planner.Preview)
			sessions.DELETE("/:id/preview", h.Planner.ClearPreview)
			sessions.GET("/:id/placements", h.Planner.GetPlacements)
			sessions.GET("/:id/export", h.Export.Export)
		}
	}

	return r
}
