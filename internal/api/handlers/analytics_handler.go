package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/services"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func parseDateParam(c *gin.Context) (time.Time, bool) {
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return time.Time{}, false
		}
		date = parsed
	}
	return date, true
}

// GetDaily returns the stored snapshot for a date.
func (h *AnalyticsHandler) GetDaily(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	snapshot, err := h.analytics.GetDaily(c.Request.Context(), date)
	if err != nil {
		log := gologger.WithComponent("analytics_handler")
		log.Error().Err(err).
			Str("date", date.Format("2006-01-02")).Msg("Failed to get analytics snapshot")
		c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetLatest returns the most recent stored snapshot.
func (h *AnalyticsHandler) GetLatest(c *gin.Context) {
	snapshot, err := h.analytics.GetLatest(c.Request.Context())
	if err != nil {
		log := gologger.WithComponent("analytics_handler")
		log.Error().Err(err).Msg("Failed to get latest analytics snapshot")
		c.JSON(http.StatusNotFound, gin.H{"error": "No snapshots available"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Generate runs a full snapshot pass over a day's events.
func (h *AnalyticsHandler) Generate(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	snapshot, err := h.analytics.GenerateDaily(c.Request.Context(), date)
	if err != nil {
		log := gologger.WithComponent("analytics_handler")
		log.Error().Err(err).
			Str("date", date.Format("2006-01-02")).Msg("Failed to generate analytics snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate analytics snapshot"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// RefreshUserAnalytics folds one user's activity into today's snapshot.
func (h *AnalyticsHandler) RefreshUserAnalytics(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	snapshot, err := h.analytics.UpdateIncremental(c.Request.Context(), userID)
	if err != nil {
		log := gologger.WithComponent("analytics_handler")
		log.Error().Err(err).
			Str("user_id", userID).Msg("Failed to update analytics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analytics"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Health reports system-wide reputation health metrics.
func (h *AnalyticsHandler) Health(c *gin.Context) {
	metrics, err := h.analytics.HealthMetrics(c.Request.Context())
	if err != nil {
		log := gologger.WithComponent("analytics_handler")
		log.Error().Err(err).Msg("Failed to compute health metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute health metrics"})
		return
	}

	c.JSON(http.StatusOK, metrics)
}
