package routes

import (
	"github.com/gin-gonic/gin"

	"mashup-server/internal/interfaces/httpserver/handlers"
)

// Provider coordinates all route registrations.
type Provider struct {
	handlers *handlers.Provider
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{handlers: handlerProvider}
}

// Register attaches all available routes to the gin engine.
func (p *Provider) Register(engine *gin.Engine) {
	v1 := engine.Group("/v1")

	v1.POST("/conversations", p.handlers.Conversation.Create)
	v1.POST("/conversations/:session_id/messages", p.handlers.Conversation.ProcessMessage)
	v1.GET("/conversations/:session_id", p.handlers.Conversation.Get)
	v1.GET("/conversations/:session_id/messages", p.handlers.Conversation.ListMessages)
	v1.GET("/conversations/:session_id/tools/stats", p.handlers.Conversation.ToolStats)

	v1.POST("/conversations/:session_id/generate", p.handlers.Mashup.Generate)
	v1.GET("/conversations/:session_id/mashups", p.handlers.Mashup.List)
}
