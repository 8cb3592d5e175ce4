package scoring

import (
	"math"
	"strings"
)

// Importance describes how much is at stake in a decision.
type Importance string

// Timeframe describes the horizon over which a decision plays out.
type Timeframe string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"

	TimeframeShort  Timeframe = "short"
	TimeframeMedium Timeframe = "medium"
	TimeframeLong   Timeframe = "long"
)

const (
	// MinConfidence and MaxConfidence bound every inferred confidence value.
	MinConfidence = 0.1
	MaxConfidence = 0.9

	// ActionableThreshold is the confidence a statement needs before options are generated.
	ActionableThreshold = 0.3

	// ContextOverrideThreshold marks signals weak enough that the caller should offer a
	// manual importance/timeframe selection. It never blocks analysis.
	ContextOverrideThreshold = 0.5
)

// ParseImportance normalises free text into an Importance, defaulting to medium.
func ParseImportance(value string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(value))) {
	case ImportanceLow:
		return ImportanceLow
	case ImportanceHigh:
		return ImportanceHigh
	default:
		return ImportanceMedium
	}
}

// ParseTimeframe normalises free text into a Timeframe, defaulting to medium.
func ParseTimeframe(value string) Timeframe {
	switch Timeframe(strings.ToLower(strings.TrimSpace(value))) {
	case TimeframeShort:
		return TimeframeShort
	case TimeframeLong:
		return TimeframeLong
	default:
		return TimeframeMedium
	}
}

// ContextSignal is the inferred importance/timeframe/confidence triple for a decision.
type ContextSignal struct {
	Importance Importance `json:"importance"`
	Timeframe  Timeframe  `json:"timeframe"`
	Confidence float64    `json:"confidence"`
}

// DefaultSignal is the medium/medium signal returned when nothing can be inferred.
func DefaultSignal() ContextSignal {
	return ContextSignal{Importance: ImportanceMedium, Timeframe: TimeframeMedium, Confidence: MinConfidence}
}

// Weighting returns the scoring context carried by the signal.
func (s ContextSignal) Weighting() Weighting {
	return Weighting{Importance: s.Importance, Timeframe: s.Timeframe}
}

// NeedsContext reports whether the caller should offer a manual context override.
func (s ContextSignal) NeedsContext() bool {
	return s.Confidence < ContextOverrideThreshold
}

// Option is a named alternative with its pros and cons.
type Option struct {
	Name string   `json:"name" yaml:"name"`
	Pros []string `json:"pros" yaml:"pros"`
	Cons []string `json:"cons" yaml:"cons"`
}

// ValidPros counts pros that are non-empty after trimming.
func (o Option) ValidPros() int {
	return countNonEmpty(o.Pros)
}

// ValidCons counts cons that are non-empty after trimming.
func (o Option) ValidCons() int {
	return countNonEmpty(o.Cons)
}

// ScoredOption is an option with its pre-sort index and computed score.
type ScoredOption struct {
	Option    Option  `json:"option"`
	Index     int     `json:"index"`
	Score     float64 `json:"score"`
	ValidPros int     `json:"valid_pros"`
	ValidCons int     `json:"valid_cons"`
}

// Weighting is the part of the context that biases option scores.
type Weighting struct {
	Importance Importance `json:"importance"`
	Timeframe  Timeframe  `json:"timeframe"`
}

// ClampConfidence forces a confidence value into [MinConfidence, MaxConfidence].
func ClampConfidence(value float64) float64 {
	if math.IsNaN(value) {
		return MinConfidence
	}
	if value < MinConfidence {
		return MinConfidence
	}
	if value > MaxConfidence {
		return MaxConfidence
	}
	return value
}

func countNonEmpty(items []string) int {
	n := 0
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			n++
		}
	}
	return n
}
