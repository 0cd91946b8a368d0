package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/services"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// ProcessEventRequest is the inbound delivery for one reputation event.
type ProcessEventRequest struct {
	EventID   string                 `json:"event_id" binding:"required,uuid"`
	EventType string                 `json:"event_type" binding:"required"`
	UserID    string                 `json:"user_id"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type EventHandler struct {
	processor *services.EventProcessor
	queue     *services.EventQueue
}

func NewEventHandler(processor *services.EventProcessor, queue *services.EventQueue) *EventHandler {
	return &EventHandler{
		processor: processor,
		queue:     queue,
	}
}

// ProcessEvent processes a reputation event synchronously. Failures are
// surfaced to the caller so an external queue can retry.
func (h *EventHandler) ProcessEvent(c *gin.Context) {
	log := gologger.WithComponent("event_handler")

	var req ProcessEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id must be a UUID"})
		return
	}

	if err := h.processor.ProcessEvent(c.Request.Context(), eventID, req.EventType, req.UserID, req.Metadata); err != nil {
		log.Error().Err(err).Str("event_id", req.EventID).Msg("Event processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// EnqueueEvent accepts a delivery for asynchronous processing with retry.
func (h *EventHandler) EnqueueEvent(c *gin.Context) {
	var req ProcessEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id must be a UUID"})
		return
	}

	h.queue.Enqueue(eventID, req.EventType, req.UserID, req.Metadata)

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "pending": h.queue.Len()})
}
