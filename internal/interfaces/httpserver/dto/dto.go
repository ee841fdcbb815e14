// Package dto defines the JSON shapes of the public HTTP API.
package dto

import (
	"time"

	"mashup-server/internal/domain/agent"
	"mashup-server/internal/domain/conversation"
)

// CreateConversationRequest is the optional body of POST /v1/conversations.
type CreateConversationRequest struct {
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProcessMessageRequest is the body of POST /v1/conversations/:session_id/messages.
type ProcessMessageRequest struct {
	Message  string            `json:"message" binding:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessagePayload is one turn of stored history.
type MessagePayload struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummaryPayload mirrors the stored session summary.
type ConversationSummaryPayload struct {
	SessionID     string    `json:"session_id"`
	Phase         string    `json:"phase"`
	MessageCount  int       `json:"message_count"`
	ToolCallCount int       `json:"tool_call_count"`
	MashupCount   int       `json:"mashup_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MashupPayload is a generated mashup.
type MashupPayload struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	SkillLevel string    `json:"skill_level,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// GenerateResponse acknowledges a queued generation request.
type GenerateResponse struct {
	TaskID    uint   `json:"task_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// TurnResponse is the outcome of one processed message. The agent's response
// shape is already JSON-tagged, so it is embedded as-is.
type TurnResponse = agent.Response

// FromMessages converts stored history to payloads.
func FromMessages(msgs []conversation.Message) []MessagePayload {
	out := make([]MessagePayload, len(msgs))
	for i, m := range msgs {
		out[i] = MessagePayload{
			Role:      string(m.Role),
			Content:   m.Content,
			Sequence:  m.Sequence,
			CreatedAt: m.CreatedAt,
		}
	}
	return out
}

// FromSummary converts the domain summary.
func FromSummary(s *conversation.Summary) ConversationSummaryPayload {
	return ConversationSummaryPayload{
		SessionID:     s.SessionID,
		Phase:         string(s.Phase),
		MessageCount:  s.MessageCount,
		ToolCallCount: s.ToolCallCount,
		MashupCount:   s.MashupCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// FromMashups converts stored mashups.
func FromMashups(mashups []conversation.Mashup) []MashupPayload {
	out := make([]MashupPayload, len(mashups))
	for i, m := range mashups {
		out[i] = MashupPayload{
			ID:         m.ID,
			Title:      m.Title,
			Content:    m.Content,
			SkillLevel: m.SkillLevel,
			Genres:     m.Genres,
			CreatedAt:  m.CreatedAt,
		}
	}
	return out
}
