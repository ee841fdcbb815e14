// Package extract pulls structured signals out of free-text user messages.
// Extraction is keyword driven and phase scoped: each phase has its own
// strategy, and strategies are pluggable so a model-based extractor can be
// substituted without touching the agent.
package extract

import (
	"strings"

	"mashup-server/internal/domain/conversation"
)

// Context is the structured signal pulled from one user message. It is
// regenerated fresh on every turn and never merged incrementally.
type Context struct {
	MentionedGenres  []string `json:"mentioned_genres,omitempty"`
	CulturalElements []string `json:"cultural_elements,omitempty"`
	TheoryConcepts   []string `json:"theory_concepts,omitempty"`
	EducationalGoals []string `json:"educational_goals,omitempty"`
	MusicInterests   []string `json:"music_interests,omitempty"`
	SkillLevel       string   `json:"skill_level,omitempty"`
	TargetAudience   string   `json:"target_audience,omitempty"`
	Confirmation     bool     `json:"confirmation,omitempty"`
}

// SearchContext projects the extracted signals into the shape the search
// backend understands.
func (c Context) SearchSignals() (genres, cultural []string, skillLevel string) {
	return c.MentionedGenres, c.CulturalElements, c.SkillLevel
}

// Extractor is the per-phase extraction strategy.
type Extractor interface {
	Phase() conversation.Phase
	Extract(text string) Context
}

// KnownGenres is the genre vocabulary matched against user messages.
var KnownGenres = []string{
	"jazz", "classical", "rock", "pop", "hip hop", "blues", "folk",
	"electronic", "reggae", "country", "r&b", "soul", "funk", "disco",
	"punk", "metal",
}

// Skill level and concept vocabularies.
var (
	beginnerWords     = []string{"beginner", "basic", "start", "new"}
	intermediateWords = []string{"intermediate", "moderate", "some"}
	advancedWords     = []string{"advanced", "expert", "complex"}

	theoryConcepts   = []string{"rhythm", "melody", "harmony", "chord", "scale", "tempo", "dynamics"}
	culturalKeywords = []string{"culture", "tradition", "heritage", "history", "origin", "background"}
	teachingWords    = []string{"teach", "learn", "education", "class", "student"}
	theoryGoalWords  = []string{"theory", "concept", "fundamental"}
	confirmWords     = []string{"yes", "confirm", "proceed", "ready"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func matchAll(text string, words []string) []string {
	var found []string
	for _, w := range words {
		if strings.Contains(text, w) {
			found = append(found, w)
		}
	}
	return found
}

// initialExtractor gathers goals, audience, and interests on first contact.
type initialExtractor struct{}

func (initialExtractor) Phase() conversation.Phase { return conversation.PhaseInitial }

func (initialExtractor) Extract(text string) Context {
	lower := strings.ToLower(text)
	var ctx Context

	if containsAny(lower, teachingWords) {
		ctx.EducationalGoals = append(ctx.EducationalGoals, "teaching")
	}
	if containsAny(lower, theoryGoalWords) {
		ctx.EducationalGoals = append(ctx.EducationalGoals, "music_theory")
	}

	switch {
	case containsAny(lower, []string{"high school", "college", "university"}):
		ctx.TargetAudience = "higher_education"
	case containsAny(lower, []string{"elementary", "middle school", "kids"}):
		ctx.TargetAudience = "k12"
	}

	ctx.MusicInterests = matchAll(lower, KnownGenres)
	return ctx
}

// genreExtractor gathers mentioned genres and cultural cues.
type genreExtractor struct{}

func (genreExtractor) Phase() conversation.Phase { return conversation.PhaseGenreExploration }

func (genreExtractor) Extract(text string) Context {
	lower := strings.ToLower(text)
	return Context{
		MentionedGenres:  matchAll(lower, KnownGenres),
		CulturalElements: matchAll(lower, culturalKeywords),
	}
}

// educationalExtractor gathers skill level and theory concepts.
type educationalExtractor struct{}

func (educationalExtractor) Phase() conversation.Phase {
	return conversation.PhaseEducationalClarification
}

func (educationalExtractor) Extract(text string) Context {
	lower := strings.ToLower(text)
	ctx := Context{
		TheoryConcepts: matchAll(lower, theoryConcepts),
	}
	switch {
	case containsAny(lower, beginnerWords):
		ctx.SkillLevel = "beginner"
	case containsAny(lower, intermediateWords):
		ctx.SkillLevel = "intermediate"
	case containsAny(lower, advancedWords):
		ctx.SkillLevel = "advanced"
	}
	if containsAny(lower, teachingWords) || containsAny(lower, theoryGoalWords) {
		ctx.EducationalGoals = append(ctx.EducationalGoals, "teaching")
	}
	return ctx
}

// culturalExtractor gathers cultural significance cues and any genres still
// being introduced late in the conversation.
type culturalExtractor struct{}

func (culturalExtractor) Phase() conversation.Phase { return conversation.PhaseCulturalResearch }

func (culturalExtractor) Extract(text string) Context {
	lower := strings.ToLower(text)
	return Context{
		CulturalElements: matchAll(lower, culturalKeywords),
		MentionedGenres:  matchAll(lower, KnownGenres),
	}
}

// generationExtractor only looks for the final confirmation.
type generationExtractor struct{}

func (generationExtractor) Phase() conversation.Phase {
	return conversation.PhaseReadyForGeneration
}

func (generationExtractor) Extract(text string) Context {
	lower := strings.ToLower(text)
	return Context{Confirmation: containsAny(lower, confirmWords)}
}

// Registry resolves the extractor for a phase.
type Registry struct {
	byPhase map[conversation.Phase]Extractor
}

// NewRegistry builds the default keyword-driven registry covering every
// progression phase.
func NewRegistry() *Registry {
	r := &Registry{byPhase: make(map[conversation.Phase]Extractor)}
	for _, e := range []Extractor{
		initialExtractor{},
		genreExtractor{},
		educationalExtractor{},
		culturalExtractor{},
		generationExtractor{},
	} {
		r.byPhase[e.Phase()] = e
	}
	return r
}

// Register installs or replaces the strategy for a phase.
func (r *Registry) Register(e Extractor) {
	r.byPhase[e.Phase()] = e
}

// Extract runs the phase-appropriate strategy. Phases without a registered
// strategy (terminal states) yield an empty Context.
func (r *Registry) Extract(phase conversation.Phase, text string) Context {
	e, ok := r.byPhase[phase]
	if !ok {
		return Context{}
	}
	return e.Extract(text)
}

// Covers reports whether a strategy is registered for the phase.
func (r *Registry) Covers(phase conversation.Phase) bool {
	_, ok := r.byPhase[phase]
	return ok
}
