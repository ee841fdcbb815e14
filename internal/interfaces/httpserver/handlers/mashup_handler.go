package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/infrastructure/queue"
	"mashup-server/internal/interfaces/httpserver/dto"
)

// MashupHandler exposes generation queueing and mashup retrieval.
type MashupHandler struct {
	store conversation.Store
	queue queue.TaskQueue
	log   zerolog.Logger
}

// NewMashupHandler constructs the handler.
func NewMashupHandler(store conversation.Store, taskQueue queue.TaskQueue, log zerolog.Logger) *MashupHandler {
	return &MashupHandler{
		store: store,
		queue: taskQueue,
		log:   log.With().Str("handler", "mashup").Logger(),
	}
}

// Generate handles POST /v1/conversations/:session_id/generate. The actual
// generation runs in the background worker pool; the endpoint only queues it.
func (h *MashupHandler) Generate(c *gin.Context) {
	sessionID := c.Param("session_id")

	conv, err := h.store.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("load conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if conv.Phase != conversation.PhaseReadyForGeneration {
		c.JSON(http.StatusConflict, gin.H{
			"error": "conversation is not ready for generation",
			"phase": string(conv.Phase),
		})
		return
	}

	taskID, err := h.queue.Enqueue(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("enqueue generation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.GenerateResponse{
		TaskID:    taskID,
		SessionID: sessionID,
		Status:    "queued",
	})
}

// List handles GET /v1/conversations/:session_id/mashups.
func (h *MashupHandler) List(c *gin.Context) {
	sessionID := c.Param("session_id")

	mashups, err := h.store.ListMashups(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("list mashups")
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mashups": dto.FromMashups(mashups)})
}
