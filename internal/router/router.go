package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/handler"
	"github.com/assessio/assessio-backend/internal/middleware"
	"github.com/assessio/assessio-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
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

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(cfg))
	{
		exams := studentAPI.Group("/exams/:exam_id")
		{
			exams.POST("/start", handlers.Session.Start)
			exams.GET("/session", handlers.Session.GetSession)
			exams.PUT("/answer", handlers.Session.SaveAnswer)
			exams.POST("/navigate", handlers.Session.Navigate)
			exams.POST("/next", handlers.Session.Next)
			exams.POST("/previous", handlers.Session.Previous)
			exams.POST("/submit", handlers.Session.Submit)
			exams.POST("/abandon", handlers.Session.Abandon)
			exams.POST("/pause", handlers.Session.Pause)
			exams.POST("/resume", handlers.Session.Resume)

			exams.GET("/attempts", handlers.Attempt.ListAttempts)
			exams.GET("/best-score", handlers.Attempt.BestScore)
			exams.GET("/passed", handlers.Attempt.HasPassed)
		}
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(cfg))
	{
		ws.GET("/student/exams/:exam_id/events", handlers.WS.EventChannel)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(cfg))
	{
		adminAPI.GET("/exams/:exam_id/students/:student_id/audit", handlers.Attempt.AuditTrail)
		adminAPI.GET("/exams/:exam_id/students/:student_id/attempts", handlers.Attempt.ListStudentAttempts)
	}

	return router
}
