package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/api/handlers"
)

func registerEventRoutes(router *gin.RouterGroup, eventHandler *handlers.EventHandler) {
	events := router.Group("/events")
	{
		events.POST("/process", eventHandler.ProcessEvent)
		events.POST("/enqueue", eventHandler.EnqueueEvent)
	}
}

func registerReputationRoutes(router *gin.RouterGroup, reputationHandler *handlers.ReputationHandler) {
	reputation := router.Group("/reputation")
	{
		reputation.GET("/:user_id", reputationHandler.GetUserReputation)
		reputation.POST("/:user_id/refresh", reputationHandler.RefreshUserReputation)
	}
}

func registerLeaderboardRoutes(router *gin.RouterGroup, leaderboardHandler *handlers.LeaderboardHandler) {
	leaderboards := router.Group("/leaderboards")
	{
		leaderboards.GET("", leaderboardHandler.GetLeaderboard)
		leaderboards.POST("/refresh", leaderboardHandler.RefreshLeaderboards)
	}
}

func registerAnalyticsRoutes(router *gin.RouterGroup, analyticsHandler *handlers.AnalyticsHandler) {
	analytics := router.Group("/analytics")
	{
		analytics.GET("/daily", analyticsHandler.GetDaily)
		analytics.GET("/latest", analyticsHandler.GetLatest)
		analytics.POST("/generate", analyticsHandler.Generate)
		analytics.POST("/users/:user_id/refresh", analyticsHandler.RefreshUserAnalytics)
		analytics.GET("/health", analyticsHandler.Health)
	}
}

func RegisterRoutes(api *gin.RouterGroup, eventHandler *handlers.EventHandler, reputationHandler *handlers.ReputationHandler, leaderboardHandler *handlers.LeaderboardHandler, analyticsHandler *handlers.AnalyticsHandler) {
	registerEventRoutes(api, eventHandler)
	registerReputationRoutes(api, reputationHandler)
	registerLeaderboardRoutes(api, leaderboardHandler)
	registerAnalyticsRoutes(api, analyticsHandler)
}
