package scoring

import "strings"

// ClarificationReason explains why a statement was not actionable.
type ClarificationReason string

const (
	ReasonNone               ClarificationReason = ""
	ReasonNeedsInput         ClarificationReason = "needs-input"
	ReasonNeedsClarification ClarificationReason = "needs-clarification"
)

// minStatementLength is the trimmed length a statement must exceed before extraction is attempted.
const minStatementLength = 5

// Verdict is the outcome of the clarification gate.
type Verdict struct {
	Valid  bool                `json:"valid"`
	Reason ClarificationReason `json:"reason,omitempty"`
}

// IsActionable decides whether a statement is clear enough to generate and score options.
func IsActionable(signal ContextSignal, text string) Verdict {
	if len([]rune(strings.TrimSpace(text))) <= minStatementLength {
		return Verdict{Valid: false, Reason: ReasonNeedsInput}
	}
	if signal.Confidence < ActionableThreshold {
		return Verdict{Valid: false, Reason: ReasonNeedsClarification}
	}
	return Verdict{Valid: true}
}
