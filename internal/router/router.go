package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/handler"
	"github.com/hiresense/interview-engine/internal/middleware"
	"github.com/hiresense/interview-engine/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Interview *handler.InterviewHandler
	Report    *handler.ReportHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the pre-flight routes (30 requests per minute per IP).
	joinLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Interview Group (Invite Token) ─────────────────────────────
	interviews := router.Group("/api/v1/interviews")
	interviews.Use(joinLimiter.Middleware())
	{
		interviews.POST("/join", handlers.Interview.JoinInterview)
		interviews.GET("/state", handlers.Interview.GetSessionState)
	}

	// ─── 2. WebSocket Group (Invite Token via Query) ───────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/interviews/stream", handlers.WS.InterviewStream)
	}

	// ─── 3. Reports Group (Recruitment Side) ───────────────────────────
	reports := router.Group("/api/v1/reports")
	{
		reports.GET("", handlers.Report.ListReports)
		reports.GET("/:candidate_ref", handlers.Report.GetReport)
	}

	return router
}
