package handlers

import (
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/agent"
	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/infrastructure/queue"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
	Mashup       *MashupHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	a *agent.Agent,
	orchestrator *tool.Orchestrator,
	store conversation.Store,
	taskQueue queue.TaskQueue,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(a, orchestrator, store, log),
		Mashup:       NewMashupHandler(store, taskQueue, log),
	}
}
