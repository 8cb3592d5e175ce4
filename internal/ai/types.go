package ai

import (
	"context"

	"decision-engine/internal/scoring"
)

// ContextInference is a provider's view of a decision statement.
type ContextInference struct {
	Understood         bool               `json:"understood"`
	Importance         scoring.Importance `json:"importance"`
	Timeframe          scoring.Timeframe  `json:"timeframe"`
	Confidence         float64            `json:"confidence"`
	SuggestedQuestions []string           `json:"suggested_questions,omitempty"`
	BetterPhrasing     string             `json:"better_phrasing,omitempty"`
	Source             string             `json:"source"`
	Fallback           bool               `json:"fallback,omitempty"`
}

// Signal returns the importance/timeframe/confidence triple.
func (c ContextInference) Signal() scoring.ContextSignal {
	return scoring.ContextSignal{
		Importance: c.Importance,
		Timeframe:  c.Timeframe,
		Confidence: scoring.ClampConfidence(c.Confidence),
	}
}

// OptionSet is a list of generated options.
type OptionSet struct {
	Options   []scoring.Option `json:"options"`
	Rationale string           `json:"rationale,omitempty"`
	// Mined is set when the options were reconstructed from prose instead of JSON.
	Mined bool `json:"mined,omitempty"`
	// Placeholder is set when nothing usable could be produced and the neutral pair was returned.
	Placeholder bool   `json:"placeholder,omitempty"`
	Source      string `json:"source"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// ExplanationInput carries everything needed to explain a recommendation.
type ExplanationInput struct {
	Decision string                 `json:"decision"`
	Options  []scoring.Option       `json:"options"`
	Ranked   []scoring.ScoredOption `json:"ranked"`
	Context  scoring.ContextSignal  `json:"context"`
}

// Explanation is free-text reasoning about a decision.
type Explanation struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ContextInferenceProvider infers importance, timeframe and confidence from a statement.
type ContextInferenceProvider interface {
	InferContext(ctx context.Context, text string) (ContextInference, error)
}

// OptionGenerationProvider proposes options for a statement.
type OptionGenerationProvider interface {
	GenerateOptions(ctx context.Context, text string) (OptionSet, error)
}

// AnalysisProvider explains which option to pick.
type AnalysisProvider interface {
	Explain(ctx context.Context, input ExplanationInput) (Explanation, error)
}

// Provider bundles every capability the engine consumes.
type Provider interface {
	ContextInferenceProvider
	OptionGenerationProvider
	AnalysisProvider
	Name() string
	Enabled() bool
}

// Completer sends a system instruction and user content to a text-completion service.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
