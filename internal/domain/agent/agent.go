// Package agent implements the phase-based conversation loop: load the
// session, extract signals from the user message, run research tools when the
// phase calls for them, ask the model for a reply, and decide whether the
// conversation advances to its next phase.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/extract"
	"mashup-server/internal/domain/llm"
	"mashup-server/internal/domain/search"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/redact"
)

// ErrInvalidInput indicates a caller contract violation, not a runtime
// failure: empty session ids and empty messages are rejected up front.
var ErrInvalidInput = errors.New("invalid input")

const (
	defaultHistoryWindow = 6
	errorResponseText    = "I apologize, but I encountered an issue processing your message. Please try again."
)

// ToolResults carries the research round attached to one turn. A failed round
// sets Error instead of aborting the turn.
type ToolResults struct {
	Calls     []tool.CallResult     `json:"calls,omitempty"`
	Synthesis *tool.SynthesisResult `json:"synthesis,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Response is the outcome of one processed turn. Phase is the phase the turn
// was handled in; NewPhase is where the conversation sits afterwards.
type Response struct {
	SessionID        string             `json:"session_id"`
	ResponseText     string             `json:"response"`
	Phase            conversation.Phase `json:"phase"`
	PhaseTransition  bool               `json:"phase_transition"`
	NewPhase         conversation.Phase `json:"new_phase"`
	Context          extract.Context    `json:"extracted_context"`
	ToolResults      *ToolResults       `json:"tool_results,omitempty"`
	GenerationQueued bool               `json:"generation_queued,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// Enqueuer schedules background mashup generation for a session.
type Enqueuer interface {
	Enqueue(ctx context.Context, sessionID string) (uint, error)
}

// Agent drives the conversation state machine for mashup planning sessions.
type Agent struct {
	repo          conversation.Repository
	llmProvider   llm.Provider
	orchestrator  *tool.Orchestrator
	extractors    *extract.Registry
	queue         Enqueuer
	model         string
	temperature   float64
	historyWindow int
	logger        zerolog.Logger
}

// Config bundles the agent's collaborators and tuning knobs. Orchestrator may
// be nil, which disables the research round entirely; Queue may be nil, which
// leaves generation to the explicit generate endpoint.
type Config struct {
	Repository    conversation.Repository
	LLMProvider   llm.Provider
	Orchestrator  *tool.Orchestrator
	Extractors    *extract.Registry
	Queue         Enqueuer
	Model         string
	Temperature   float64
	HistoryWindow int
	Logger        zerolog.Logger
}

// New constructs an agent. The history window falls back to the default when
// non-positive, and a nil extractor registry gets the standard keyword one.
func New(cfg Config) *Agent {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Extractors == nil {
		cfg.Extractors = extract.NewRegistry()
	}
	return &Agent{
		repo:          cfg.Repository,
		llmProvider:   cfg.LLMProvider,
		orchestrator:  cfg.Orchestrator,
		extractors:    cfg.Extractors,
		queue:         cfg.Queue,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger.With().Str("component", "conversation_agent").Logger(),
	}
}

// ProcessMessage handles one turn. The returned error is reserved for caller
// contract violations; runtime failures (store down, model down, tool errors)
// are folded into the Response so a flaky turn never kills the session.
func (a *Agent) ProcessMessage(ctx context.Context, sessionID, userMessage string, metadata map[string]string) (*Response, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if userMessage == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	conv, err := a.repo.GetOrCreate(ctx, sessionID, metadata)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID).Msg("load conversation")
		return a.errorResponse(sessionID, conversation.PhaseInitial, err), nil
	}
	phase := conv.Phase

	a.logger.Debug().
		Str("session_id", sessionID).
		Str("phase", string(phase)).
		Str("message", redact.Preview(userMessage)).
		Msg("processing turn")

	extracted := a.extractors.Extract(phase, userMessage)

	// The user's turn is persisted before anything that can fail, so a
	// failed generation never loses it.
	if err := a.repo.AppendMessage(ctx, sessionID, conversation.RoleUser, userMessage); err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID).Msg("persist user message")
		return a.errorResponse(sessionID, phase, err), nil
	}

	toolResults := a.runTools(ctx, sessionID, phase, extracted)

	responseText := a.generateReply(ctx, sessionID, phase, toolResults)

	decision := Decide(phase, userMessage, extracted)

	if err := a.repo.AppendMessage(ctx, sessionID, conversation.RoleAssistant, responseText); err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID).Msg("persist assistant message")
		return a.errorResponse(sessionID, phase, err), nil
	}
	if decision.ShouldTransition {
		if err := a.repo.UpdatePhase(ctx, sessionID, decision.NewPhase); err != nil {
			a.logger.Error().Err(err).Str("session_id", sessionID).Msg("update phase")
			return a.errorResponse(sessionID, phase, err), nil
		}
		a.logger.Info().
			Str("session_id", sessionID).
			Str("from", string(phase)).
			Str("to", string(decision.NewPhase)).
			Msg("phase transition")
	}

	queued := false
	if phase == conversation.PhaseReadyForGeneration && extracted.Confirmation && a.queue != nil {
		if taskID, err := a.queue.Enqueue(ctx, sessionID); err != nil {
			a.logger.Error().Err(err).Str("session_id", sessionID).Msg("enqueue generation")
		} else {
			queued = true
			a.logger.Info().
				Str("session_id", sessionID).
				Uint("task_id", taskID).
				Msg("generation queued")
		}
	}

	return &Response{
		SessionID:        sessionID,
		ResponseText:     responseText,
		Phase:            phase,
		PhaseTransition:  decision.ShouldTransition,
		NewPhase:         decision.NewPhase,
		Context:          extracted,
		ToolResults:      toolResults,
		GenerationQueued: queued,
	}, nil
}

// runTools dispatches the research round when the phase and extracted context
// warrant it. Failures land in ToolResults.Error, never in a returned error.
func (a *Agent) runTools(ctx context.Context, sessionID string, phase conversation.Phase, extracted extract.Context) *ToolResults {
	if a.orchestrator == nil {
		return nil
	}

	genres, cultural, skillLevel := extracted.SearchSignals()
	sc := search.Context{
		SkillLevel:       skillLevel,
		Genres:           genres,
		CulturalElements: cultural,
	}

	var (
		keys      []string
		byKey     map[string]tool.CallResult
		synthesis tool.SynthesisResult
	)
	switch {
	case phase == conversation.PhaseGenreExploration && len(genres) > 0:
		keys = genres
		byKey, synthesis = a.orchestrator.ExecuteGenreExploration(ctx, sessionID, genres, sc)
	case phase == conversation.PhaseCulturalResearch && len(cultural) > 0:
		keys = cultural
		byKey, synthesis = a.orchestrator.ExecuteCulturalResearch(ctx, sessionID, cultural, sc)
	case phase == conversation.PhaseCulturalResearch && len(genres) > 0:
		keys = genres
		byKey, synthesis = a.orchestrator.ExecuteGenreExploration(ctx, sessionID, genres, sc)
	default:
		return nil
	}

	calls := make([]tool.CallResult, 0, len(byKey))
	for _, key := range keys {
		if call, ok := byKey[key]; ok {
			calls = append(calls, call)
		}
	}
	results := &ToolResults{Calls: calls, Synthesis: &synthesis}
	if synthesis.Successful == 0 && synthesis.Failed > 0 {
		results.Error = fmt.Sprintf("all %d research calls failed", synthesis.Failed)
	}
	return results
}

// generateReply asks the model for the turn's response, substituting the
// phase fallback when the backend fails.
func (a *Agent) generateReply(ctx context.Context, sessionID string, phase conversation.Phase, toolResults *ToolResults) string {
	messages, err := a.assemblePrompt(ctx, sessionID, phase, toolResults)
	if err != nil {
		a.logger.Warn().Err(err).Str("session_id", sessionID).Msg("assemble prompt")
		return FallbackResponse(phase)
	}

	temperature := a.temperature
	resp, err := a.llmProvider.CreateChatCompletion(ctx, llm.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: &temperature,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("session_id", sessionID).Msg("llm completion failed, using fallback")
		return FallbackResponse(phase)
	}
	text, err := llm.FirstChoiceText(resp)
	if err != nil || text == "" {
		a.logger.Warn().Err(err).Str("session_id", sessionID).Msg("empty llm completion, using fallback")
		return FallbackResponse(phase)
	}
	return text
}

// assemblePrompt builds the model input: phase instruction, an optional note
// about research volume, then the recent history as role-tagged turns.
func (a *Agent) assemblePrompt(ctx context.Context, sessionID string, phase conversation.Phase, toolResults *ToolResults) ([]llm.ChatMessage, error) {
	system := SystemPrompt(phase)
	if toolResults != nil && toolResults.Synthesis != nil && toolResults.Synthesis.TotalResults > 0 {
		system = fmt.Sprintf("%s\n\nResearch context: %d relevant sources found.", system, toolResults.Synthesis.TotalResults)
	}
	messages := []llm.ChatMessage{{Role: "system", Content: system}}

	history, err := a.repo.ListMessages(ctx, sessionID, a.historyWindow, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range history {
		switch msg.Role {
		case conversation.RoleUser, conversation.RoleAssistant:
			messages = append(messages, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}
	return messages, nil
}

func (a *Agent) errorResponse(sessionID string, phase conversation.Phase, err error) *Response {
	return &Response{
		SessionID:    sessionID,
		ResponseText: errorResponseText,
		Phase:        phase,
		NewPhase:     phase,
		Error:        err.Error(),
	}
}
