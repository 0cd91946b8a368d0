package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/api/handlers"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/api/middleware"
	v1 "github.com/CrysisFangz/TheFinalMarket-sub014/internal/api/v1"
)

func init() {
	// Set Gin to release mode to disable debug logging
	gin.SetMode(gin.ReleaseMode)
}

type Router struct {
	engine   *gin.Engine
	endpoint string
}

func NewRouter(eventHandler *handlers.EventHandler, reputationHandler *handlers.ReputationHandler, leaderboardHandler *handlers.LeaderboardHandler, analyticsHandler *handlers.AnalyticsHandler, endpoint string) *Router {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.Logging())

	r := &Router{
		engine:   engine,
		endpoint: endpoint,
	}

	r.registerRoutes(eventHandler, reputationHandler, leaderboardHandler, analyticsHandler)
	return r
}

func (r *Router) registerRoutes(eventHandler *handlers.EventHandler, reputationHandler *handlers.ReputationHandler, leaderboardHandler *handlers.LeaderboardHandler, analyticsHandler *handlers.AnalyticsHandler) {
	api := r.engine.Group(r.endpoint)
	v1.RegisterRoutes(api, eventHandler, reputationHandler, leaderboardHandler, analyticsHandler)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) AddMiddleware(middleware gin.HandlerFunc) {
	r.engine.Use(middleware)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}
