// Package generation produces the final educational mashup for a
// conversation that has finished its planning phases. It runs outside the
// request path, normally driven by the background worker pool.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/llm"
)

var (
	// ErrNotFound indicates the session has no stored conversation.
	ErrNotFound = errors.New("conversation not found")

	// ErrNotReady indicates the conversation has not reached the
	// ready-for-generation phase.
	ErrNotReady = errors.New("conversation not ready for generation")
)

var skillLevelPrompts = map[string]string{
	"beginner":     "Explain in simple terms suitable for beginners with no prior music theory knowledge.",
	"intermediate": "Provide intermediate-level explanations with some technical depth and practical examples.",
	"advanced":     "Offer advanced-level content with detailed technical analysis and sophisticated concepts.",
}

const historyWindow = 12

// Service turns a fully planned conversation into a persisted mashup.
type Service struct {
	store       conversation.Store
	llmProvider llm.Provider
	model       string
	logger      zerolog.Logger
}

// NewService constructs the generation service.
func NewService(store conversation.Store, llmProvider llm.Provider, model string, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		llmProvider: llmProvider,
		model:       model,
		logger:      logger.With().Str("component", "generation_service").Logger(),
	}
}

// ExecuteBackground runs Generate for the worker pool, which only cares
// whether the task succeeded.
func (s *Service) ExecuteBackground(ctx context.Context, sessionID string) error {
	_, err := s.Generate(ctx, sessionID)
	return err
}

// Generate produces and persists the mashup for sessionID, then completes the
// conversation. A model failure moves the conversation to the error phase so
// it is never left waiting forever.
func (s *Service) Generate(ctx context.Context, sessionID string) (*conversation.Mashup, error) {
	conv, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if conv.Phase != conversation.PhaseReadyForGeneration {
		return nil, fmt.Errorf("%w: session %s in phase %s", ErrNotReady, sessionID, conv.Phase)
	}

	history, err := s.store.ListMessages(ctx, sessionID, historyWindow, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	skillLevel := conv.Metadata["skill_level"]
	genres := splitList(conv.Metadata["genres"])

	prompt := buildPrompt(skillLevel, genres, history)
	resp, err := s.llmProvider.CreateChatCompletion(ctx, llm.ChatCompletionRequest{
		Model: s.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: "Please generate the educational mashup now."},
		},
	})
	content := ""
	if err == nil {
		content, err = llm.FirstChoiceText(resp)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("mashup generation failed")
		if phaseErr := s.store.UpdatePhase(ctx, sessionID, conversation.PhaseError); phaseErr != nil {
			s.logger.Error().Err(phaseErr).Str("session_id", sessionID).Msg("mark conversation failed")
		}
		return nil, fmt.Errorf("generate mashup: %w", err)
	}

	mashup := &conversation.Mashup{
		ConversationID: conv.ID,
		Title:          mashupTitle(genres),
		Content:        content,
		SkillLevel:     skillLevel,
		Genres:         genres,
	}
	if err := s.store.CreateMashup(ctx, sessionID, mashup); err != nil {
		return nil, fmt.Errorf("persist mashup: %w", err)
	}
	if err := s.store.UpdatePhase(ctx, sessionID, conversation.PhaseGenerationComplete); err != nil {
		return nil, fmt.Errorf("complete conversation: %w", err)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("title", mashup.Title).
		Msg("mashup generated")
	return mashup, nil
}

// buildPrompt assembles the context-enhanced generation instruction from the
// planning conversation.
func buildPrompt(skillLevel string, genres []string, history []conversation.Message) string {
	var sb strings.Builder
	sb.WriteString("You are an expert music educator creating an educational music mashup lesson.\n\n")

	if len(genres) > 0 {
		fmt.Fprintf(&sb, "GENRES: %s\n", strings.Join(genres, ", "))
	}
	if skillLevel != "" {
		fmt.Fprintf(&sb, "SKILL LEVEL: %s\n", skillLevel)
		if hint, ok := skillLevelPrompts[skillLevel]; ok {
			sb.WriteString(hint)
			sb.WriteString("\n")
		}
	}

	if len(history) > 0 {
		sb.WriteString("\nPLANNING CONVERSATION:\n")
		for _, msg := range history {
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	sb.WriteString(`
INSTRUCTIONS:
1. Generate high-quality, educational content appropriate for the specified skill level
2. Combine the selected genres with attention to their cultural context
3. Ensure cultural sensitivity and accuracy
4. Provide practical examples and clear explanations
5. Structure the content for easy comprehension
6. Include teaching notes where appropriate`)
	return sb.String()
}

func mashupTitle(genres []string) string {
	if len(genres) == 0 {
		return "Educational Music Mashup"
	}
	return fmt.Sprintf("Educational Mashup: %s", strings.Join(genres, " x "))
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
