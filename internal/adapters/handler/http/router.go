package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/mshiraki/trainlog/internal/adapters/handler/http/middleware"
	"github.com/mshiraki/trainlog/internal/core/services"
)

type RouterDependencies struct {
	AuthHandler     *AuthHandler
	SessionHandler  *SessionHandler
	RuleHandler     *RuleHandler
	TaskHandler     *TaskHandler
	ReminderHandler *ReminderHandler
	BatchHandler    *BatchHandler
	TokenService    *services.TokenService
	DB              *sqlx.DB
	Redis           *redis.Client
	StartTime       time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept-Encoding")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	if deps.Redis != nil {
		router.Use(middleware.RateLimiter(deps.Redis, 100, time.Minute))
	}

	// Redis being down degrades the service (no cache, no rate limit) but
	// does not make it unhealthy; only a dead database does.
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "up"
		if err := deps.DB.PingContext(c.Request.Context()); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		redisStatus := "up"
		if deps.Redis == nil || deps.Redis.Ping(c.Request.Context()).Err() != nil {
			redisStatus = "down"
		}

		c.JSON(status, gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := router.Group("/api/v1")

	deps.AuthHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.TokenService))
	{
		deps.SessionHandler.RegisterRoutes(protected)
		deps.RuleHandler.RegisterRoutes(protected)
		deps.TaskHandler.RegisterRoutes(protected)
		deps.ReminderHandler.RegisterRoutes(protected)
	}

	// Not user-facing: the cron trigger and ops hit this, shielded at the
	// network layer rather than by user auth.
	internal := router.Group("/internal")
	deps.BatchHandler.RegisterRoutes(internal)

	return router
}
