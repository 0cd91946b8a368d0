package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/services"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

type LeaderboardHandler struct {
	calculator *services.LeaderboardCalculator
}

func NewLeaderboardHandler(calculator *services.LeaderboardCalculator) *LeaderboardHandler {
	return &LeaderboardHandler{calculator: calculator}
}

// parsePeriodParams reads the type and date query parameters. Omitted
// values default to the daily board for today.
func parsePeriodParams(c *gin.Context) (models.LeaderboardType, time.Time, bool) {
	leaderboardType, err := models.ParseLeaderboardType(c.DefaultQuery("type", string(models.LeaderboardDaily)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", time.Time{}, false
	}

	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return "", time.Time{}, false
		}
	}

	return leaderboardType, date, true
}

// GetLeaderboard returns the requested leaderboard, recalculating it
// when the stored rankings have gone stale.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	leaderboardType, date, ok := parsePeriodParams(c)
	if !ok {
		return
	}

	leaderboard, err := h.calculator.GetOrCalculate(c.Request.Context(), leaderboardType, date)
	if err != nil {
		log := gologger.WithComponent("leaderboard_handler")
		log.Error().Err(err).
			Str("type", string(leaderboardType)).Msg("Failed to get leaderboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}

// RefreshLeaderboards recalculates every leaderboard type covering now.
func (h *LeaderboardHandler) RefreshLeaderboards(c *gin.Context) {
	h.calculator.RefreshForEvent(c.Request.Context(), time.Now().UTC())
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}
