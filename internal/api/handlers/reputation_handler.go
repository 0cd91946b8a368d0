package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/services"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

type ReputationHandler struct {
	refresher *services.SummaryRefresher
}

func NewReputationHandler(refresher *services.SummaryRefresher) *ReputationHandler {
	return &ReputationHandler{refresher: refresher}
}

// GetUserReputation returns the stored summary for a user, refreshing it
// first when no summary exists yet.
func (h *ReputationHandler) GetUserReputation(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	summary, err := h.refresher.Get(c.Request.Context(), userID)
	if err != nil {
		log := gologger.WithComponent("reputation_handler")
		log.Error().Err(err).
			Str("user_id", userID).Msg("Failed to get reputation summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reputation summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RefreshUserReputation recomputes the summary from the event log.
func (h *ReputationHandler) RefreshUserReputation(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	summary, err := h.refresher.Refresh(c.Request.Context(), userID)
	if err != nil {
		log := gologger.WithComponent("reputation_handler")
		log.Error().Err(err).
			Str("user_id", userID).Msg("Failed to refresh reputation summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh reputation summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
