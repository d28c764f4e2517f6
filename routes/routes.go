package routes

import (
	"net/http"
	"time"

	"skywatch/handlers"
	"skywatch/middleware"
	"skywatch/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterMonitoringRoutes registers the operations endpoints. All of them
// sit behind the ops JWT.
func RegisterMonitoringRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/monitoring")
	{
		api.Use(middleware.OpsAuthMiddleware())
		api.GET("/stats", hb.Monitoring.StatsHandler)
		api.POST("/optimize", hb.Monitoring.OptimizeHandler)
		api.GET("/routes/high-risk", hb.Monitoring.HighRiskRoutesHandler)
		api.GET("/interruptions", hb.Monitoring.InterruptionsHandler)
		api.GET("/flights/:flight/status", hb.Monitoring.FlightStatusHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterMonitoringRoutes(r, hb)
	RegisterHealthRoute(r)
}
