// Package conversation defines the conversation protocol types and the
// persistence contract consumed by the agent and tool orchestrator.
package conversation

import "errors"

// Phase represents a stage of the guided mashup conversation.
type Phase string

const (
	// Ordered progression phases
	PhaseInitial                  Phase = "initial"
	PhaseGenreExploration         Phase = "genre_exploration"
	PhaseEducationalClarification Phase = "educational_clarification"
	PhaseCulturalResearch         Phase = "cultural_research"
	PhaseReadyForGeneration       Phase = "ready_for_generation"

	// Terminal states
	PhaseGenerationComplete Phase = "generation_complete"
	PhaseError              Phase = "error"
)

// ErrUnknownPhase is returned when parsing an unrecognised phase value.
var ErrUnknownPhase = errors.New("unknown conversation phase")

// phaseOrder maps each progression phase to its position in the protocol.
var phaseOrder = map[Phase]int{
	PhaseInitial:                  0,
	PhaseGenreExploration:         1,
	PhaseEducationalClarification: 2,
	PhaseCulturalResearch:         3,
	PhaseReadyForGeneration:       4,
	PhaseGenerationComplete:       5,
}

// ParsePhase validates a raw string against the known phases.
func ParsePhase(raw string) (Phase, error) {
	p := Phase(raw)
	switch p {
	case PhaseInitial, PhaseGenreExploration, PhaseEducationalClarification,
		PhaseCulturalResearch, PhaseReadyForGeneration,
		PhaseGenerationComplete, PhaseError:
		return p, nil
	}
	return "", ErrUnknownPhase
}

// IsTerminal returns true if the conversation ends at this phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseGenerationComplete || p == PhaseError
}

// Next returns the next phase in the protocol order. Terminal phases and
// unknown values map to PhaseError.
func (p Phase) Next() Phase {
	switch p {
	case PhaseInitial:
		return PhaseGenreExploration
	case PhaseGenreExploration:
		return PhaseEducationalClarification
	case PhaseEducationalClarification:
		return PhaseCulturalResearch
	case PhaseCulturalResearch:
		return PhaseReadyForGeneration
	case PhaseReadyForGeneration:
		return PhaseGenerationComplete
	}
	return PhaseError
}

// CanAdvanceTo reports whether moving from p to target respects the
// forward-only protocol. PhaseError is reachable from any phase; no phase
// is reachable from a terminal one.
func (p Phase) CanAdvanceTo(target Phase) bool {
	if p.IsTerminal() {
		return false
	}
	if target == PhaseError {
		return true
	}
	from, ok := phaseOrder[p]
	if !ok {
		return false
	}
	to, ok := phaseOrder[target]
	if !ok {
		return false
	}
	return to > from
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}
