package agent

import (
	"strings"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/extract"
)

// Decision is the outcome of the transition check for one turn.
type Decision struct {
	ShouldTransition bool               `json:"should_transition"`
	NewPhase         conversation.Phase `json:"new_phase"`
}

var initialTriggers = []string{"genre", "music", "style", "type", "explore"}

// Decide evaluates the phase transition table for one turn. It is a pure
// function of (phase, message, extracted context): the same inputs always
// produce the same decision. When no rule matches, the conversation stays
// where it is.
func Decide(phase conversation.Phase, userMessage string, ctx extract.Context) Decision {
	stay := Decision{ShouldTransition: false, NewPhase: phase}

	switch phase {
	case conversation.PhaseInitial:
		lower := strings.ToLower(userMessage)
		for _, trigger := range initialTriggers {
			if strings.Contains(lower, trigger) {
				return Decision{ShouldTransition: true, NewPhase: conversation.PhaseGenreExploration}
			}
		}
		for _, genre := range extract.KnownGenres {
			if strings.Contains(lower, genre) {
				return Decision{ShouldTransition: true, NewPhase: conversation.PhaseGenreExploration}
			}
		}

	case conversation.PhaseGenreExploration:
		if len(ctx.MentionedGenres) > 0 {
			return Decision{ShouldTransition: true, NewPhase: conversation.PhaseEducationalClarification}
		}

	case conversation.PhaseEducationalClarification:
		if len(ctx.TheoryConcepts) > 0 || len(ctx.EducationalGoals) > 0 {
			return Decision{ShouldTransition: true, NewPhase: conversation.PhaseCulturalResearch}
		}

	case conversation.PhaseCulturalResearch:
		if len(ctx.CulturalElements) > 0 || len(ctx.MentionedGenres) > 0 {
			return Decision{ShouldTransition: true, NewPhase: conversation.PhaseReadyForGeneration}
		}

	case conversation.PhaseReadyForGeneration:
		// Absorbing: generation completes the conversation externally.
	}

	return stay
}
