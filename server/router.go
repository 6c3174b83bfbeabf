package server

import (
	"net/http"
	"time"

	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/realtime"
	httpHandler "kreatr-scheduler/interfaces/http"
	"kreatr-scheduler/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	scheduleHandler httpHandler.IScheduleHandler,
	schedulerHandler httpHandler.ISchedulerHandler,
	userRepository repository.IUser,
	hub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://kreatr.app", "https://studio.kreatr.app", "http://localhost:3000", "https://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Cron trigger sits outside the session-auth group; it carries its own
	// shared-secret check.
	router.POST("/scheduler/process", schedulerHandler.Process)

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	scheduler := api.Group("/scheduler")
	{
		scheduler.POST("/process-now", schedulerHandler.ProcessNow)
		scheduler.POST("/retry-failed", schedulerHandler.RetryFailed)
		scheduler.GET("/stats", schedulerHandler.Stats)
	}

	content := api.Group("/content")
	{
		content.GET("/scheduled", scheduleHandler.GetScheduled)
		content.GET("/queue-status", scheduleHandler.GetQueueStatus)
		content.POST("/:contentId/schedule", scheduleHandler.Schedule)
		content.POST("/:contentId/reschedule", scheduleHandler.Reschedule)
		content.POST("/:contentId/cancel", scheduleHandler.Cancel)
		content.GET("/:contentId/attempts", scheduleHandler.GetAttempts)
	}

	api.GET("/platforms", scheduleHandler.GetPlatforms)

	if hub != nil {
		api.GET("/dispatch/stream", hub.Serve)
	}

	return router
}
