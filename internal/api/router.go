package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orrn/printflow/internal/api/handlers"
	"github.com/orrn/printflow/internal/api/middleware"
	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/db"
)

// NewRouter assembles the HTTP surface: submission and status for the
// ordering service, administrative queue control, history and metrics.
func NewRouter(cfg *config.Config, queue *core.Queue, sequence *core.DeliverySequence, history *db.History) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	auth := middleware.NewAuth(&cfg.Auth)
	jobs := handlers.NewJobHandler(queue, history)
	delivery := handlers.NewDeliveryHandler(sequence)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", auth.Login)
		v1.POST("/auth/logout", auth.Logout)

		submit := v1.Group("", auth.RequireAPIKey())
		{
			submit.POST("/jobs", jobs.SubmitJob)
			submit.GET("/queue", jobs.QueueStatus)
			submit.GET("/history", jobs.ListHistory)
			submit.GET("/delivery", delivery.State)
		}

		admin := v1.Group("", auth.RequireAdmin())
		{
			admin.DELETE("/queue", jobs.ClearQueue)
		}
	}

	return router
}
