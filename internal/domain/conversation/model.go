package conversation

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Conversation represents one guided mashup session.
type Conversation struct {
	ID        uint              `json:"-"`
	SessionID string            `json:"session_id"`
	Phase     Phase             `json:"phase"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Message is a single turn entry. Messages are append-only and ordered by
// sequence within their conversation.
type Message struct {
	ID             uint      `json:"-"`
	ConversationID uint      `json:"-"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Sequence       int       `json:"sequence"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToolCall is the persisted audit record of one tool invocation.
type ToolCall struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"-"`
	ToolType       string    `json:"tool_type"`
	InputData      string    `json:"input_data"`
	OutputData     string    `json:"output_data,omitempty"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Mashup is the generated end product attached to a completed conversation.
type Mashup struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"-"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	SkillLevel     string    `json:"skill_level,omitempty"`
	Genres         []string  `json:"genres,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary aggregates a conversation's stored state for reporting.
type Summary struct {
	SessionID     string    `json:"session_id"`
	Phase         Phase     `json:"phase"`
	MessageCount  int       `json:"message_count"`
	ToolCallCount int       `json:"tool_call_count"`
	MashupCount   int       `json:"mashup_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewConversation constructs a session in the initial phase.
func NewConversation(sessionID string, metadata map[string]string) *Conversation {
	now := time.Now()
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &Conversation{
		SessionID: sessionID,
		Phase:     PhaseInitial,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
