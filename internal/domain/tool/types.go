package tool

import (
	"time"

	"mashup-server/internal/domain/search"
)

// ExecutionStatus represents the lifecycle of a tool execution attempt.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusTimeout   ExecutionStatus = "timeout"
)

// IsTerminal reports whether the status is a final outcome.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusTimeout:
		return true
	}
	return false
}

// ToolType identifies which tool a call targets.
type ToolType string

const (
	ToolTypeWebSearch        ToolType = "web_search"
	ToolTypeGenreExploration ToolType = "genre_exploration"
	ToolTypeCulturalResearch ToolType = "cultural_research"
)

// Task is one unit of work for the concurrent executor.
type Task struct {
	ToolType ToolType
	Query    string
	Context  search.Context
}

// CallResult captures the full outcome of a single tool call. Failures are
// expressed here rather than as errors: callers always receive a value.
type CallResult struct {
	ToolType      ToolType         `json:"tool_type"`
	Query         string           `json:"query"`
	Status        ExecutionStatus  `json:"status"`
	Response      *search.Response `json:"response,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	ExecutionTime time.Duration    `json:"execution_time"`
}

// Succeeded reports whether the call completed with a usable response.
func (r CallResult) Succeeded() bool {
	return r.Status == ExecutionStatusCompleted && r.Response != nil && r.Response.Error == ""
}

// SynthesisResult merges the payloads of several tool calls into one
// deduplicated research digest.
type SynthesisResult struct {
	Queries      []string        `json:"queries"`
	Results      []search.Result `json:"results"`
	TotalResults int             `json:"total_results"`
	Successful   int             `json:"successful_count"`
	Failed       int             `json:"failed_count"`
	Errors       []string        `json:"errors,omitempty"`
	Summary      string          `json:"summary"`
}

// Statistics aggregates the audit trail of a session's tool usage.
// SuccessRate is a percentage (0..100), 0 when no calls were recorded.
type Statistics struct {
	TotalCalls  int            `json:"total_calls"`
	ByStatus    map[string]int `json:"by_status"`
	ByToolType  map[string]int `json:"by_tool_type"`
	SuccessRate float64        `json:"success_rate"`
}
