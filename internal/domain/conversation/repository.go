package conversation

import "context"

// Repository is the durability contract for conversation state. A single
// repository instance serialises access to its underlying connection; callers
// must not assume store calls are contention free.
type Repository interface {
	// GetOrCreate returns the conversation for sessionID, creating it in the
	// initial phase when absent. Creation is idempotent: a concurrent or
	// repeated create resolves to the existing row.
	GetOrCreate(ctx context.Context, sessionID string, metadata map[string]string) (*Conversation, error)

	// Get returns the conversation for sessionID, or nil when absent.
	Get(ctx context.Context, sessionID string) (*Conversation, error)

	// UpdatePhase moves the stored phase and rewrites updated_at.
	UpdatePhase(ctx context.Context, sessionID string, phase Phase) error

	// AppendMessage adds one message to the session's ordered history.
	AppendMessage(ctx context.Context, sessionID string, role Role, content string) error

	// ListMessages returns up to limit most-recent messages in ascending
	// sequence order, skipping offset messages from the end first.
	// limit <= 0 means no limit, offset <= 0 means no skip.
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)

	// Summary aggregates stored counts for the session.
	Summary(ctx context.Context, sessionID string) (*Summary, error)
}

// ToolCallStore tracks the audit trail of tool invocations, keyed by
// conversation session. Kept separate from Repository so the tool
// orchestrator depends only on what it uses.
type ToolCallStore interface {
	// AddToolCall records a dispatched call and returns its row id.
	AddToolCall(ctx context.Context, sessionID, toolType, inputData, status string) (uint, error)

	// UpdateToolCall moves a recorded call to a terminal status.
	UpdateToolCall(ctx context.Context, id uint, outputData, status, errorMessage string) error

	// ListToolCalls returns up to limit calls for the session, newest first.
	// limit <= 0 means no limit.
	ListToolCalls(ctx context.Context, sessionID string, limit int) ([]ToolCall, error)
}

// MashupStore persists generated mashups.
type MashupStore interface {
	CreateMashup(ctx context.Context, sessionID string, mashup *Mashup) error
	ListMashups(ctx context.Context, sessionID string) ([]Mashup, error)
}

// Store is the full persistence surface implemented by the database layer.
type Store interface {
	Repository
	ToolCallStore
	MashupStore
}
