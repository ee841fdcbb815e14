package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/agent"
	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/infrastructure/metrics"
	"mashup-server/internal/interfaces/httpserver/dto"
)

// ConversationHandler exposes the conversation turn and inspection endpoints.
type ConversationHandler struct {
	agent        *agent.Agent
	orchestrator *tool.Orchestrator
	repo         conversation.Repository
	log          zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(a *agent.Agent, orchestrator *tool.Orchestrator, repo conversation.Repository, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		agent:        a,
		orchestrator: orchestrator,
		repo:         repo,
		log:          log.With().Str("handler", "conversation").Logger(),
	}
}

// Create handles POST /v1/conversations. It mints a session id so clients
// that do not manage their own ids can still open a conversation.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := fmt.Sprintf("sess_%s", uuid.NewString())
	conv, err := h.repo.GetOrCreate(c.Request.Context(), sessionID, req.Metadata)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("create conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// ProcessMessage handles POST /v1/conversations/:session_id/messages.
func (h *ConversationHandler) ProcessMessage(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req dto.ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.agent.ProcessMessage(c.Request.Context(), sessionID, req.Message, req.Metadata)
	if err != nil {
		if errors.Is(err, agent.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if resp.PhaseTransition {
		metrics.RecordPhaseTransition(string(resp.Phase), string(resp.NewPhase))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/conversations/:session_id.
func (h *ConversationHandler) Get(c *gin.Context) {
	sessionID := c.Param("session_id")

	summary, err := h.repo.Summary(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("load summary")
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, dto.FromSummary(summary))
}

// ListMessages handles GET /v1/conversations/:session_id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	sessionID := c.Param("session_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	msgs, err := h.repo.ListMessages(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("list messages")
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": dto.FromMessages(msgs)})
}

// ToolStats handles GET /v1/conversations/:session_id/tools/stats.
func (h *ConversationHandler) ToolStats(c *gin.Context) {
	sessionID := c.Param("session_id")

	stats, err := h.orchestrator.Statistics(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, tool.ErrNoStore) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "tool call auditing is disabled"})
			return
		}
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("tool statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
