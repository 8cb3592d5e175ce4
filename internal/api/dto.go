package api

import (
	"strings"
	"time"

	"decision-engine/internal/engine"
	"decision-engine/internal/scoring"
	"decision-engine/internal/store"
)

// maxBatchItems caps a single batch request.
const maxBatchItems = 50

// ContextRequest asks for the context stage only.
type ContextRequest struct {
	Text       string `json:"text"`
	Mode       string `json:"mode"`
	Importance string `json:"importance"`
	Timeframe  string `json:"timeframe"`
}

// OptionsRequest asks for generated options.
type OptionsRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// ScoreRequest ranks caller-supplied options.
type ScoreRequest struct {
	Options    []scoring.Option `json:"options"`
	Importance string           `json:"importance"`
	Timeframe  string           `json:"timeframe"`
	Jitter     bool             `json:"jitter"`
}

// ScoreResponse is the ranking for a ScoreRequest.
type ScoreResponse struct {
	Ranked           []scoring.ScoredOption `json:"ranked"`
	RecommendedIndex int                    `json:"recommended_index"`
	Recommended      string                 `json:"recommended"`
}

// ExplainRequest asks for recommendation text over known options.
type ExplainRequest struct {
	Text       string           `json:"text"`
	Mode       string           `json:"mode"`
	Options    []scoring.Option `json:"options"`
	Importance string           `json:"importance"`
	Timeframe  string           `json:"timeframe"`
}

// AnalyzeRequest runs the full pipeline.
type AnalyzeRequest struct {
	Text       string           `json:"text"`
	Mode       string           `json:"mode"`
	Options    []scoring.Option `json:"options"`
	Importance string           `json:"importance"`
	Timeframe  string           `json:"timeframe"`
	Jitter     bool             `json:"jitter"`
	// SelectedIndex is the option the user already leans towards, if any.
	SelectedIndex *int `json:"selected_index"`
}

// BatchAnalyzeRequest runs several analyses in parallel.
type BatchAnalyzeRequest struct {
	Items []AnalyzeRequest `json:"items"`
}

// BatchItemDTO is one batch outcome; exactly one of Result and Error is set.
type BatchItemDTO struct {
	Result *AnalyzeResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// BatchAnalyzeResponse lists batch outcomes in request order.
type BatchAnalyzeResponse struct {
	Items []BatchItemDTO `json:"items"`
}

// SourcesDTO names the provider behind each stage.
type SourcesDTO struct {
	Context     string `json:"context"`
	Options     string `json:"options"`
	Explanation string `json:"explanation"`
}

// AnalysisDTO is the API representation of a persisted analysis.
type AnalysisDTO struct {
	ID               string                 `json:"id"`
	Text             string                 `json:"text"`
	Mode             string                 `json:"mode"`
	Importance       string                 `json:"importance"`
	Timeframe        string                 `json:"timeframe"`
	Confidence       float64                `json:"confidence"`
	Valid            bool                   `json:"valid"`
	Reason           string                 `json:"reason,omitempty"`
	NeedsContext     bool                   `json:"needs_context"`
	Overridden       bool                   `json:"overridden"`
	Options          []scoring.Option       `json:"options"`
	Ranked           []scoring.ScoredOption `json:"ranked"`
	RecommendedIndex int                    `json:"recommended_index"`
	Recommended      string                 `json:"recommended,omitempty"`
	SelectedIndex    *int                   `json:"selected_index,omitempty"`
	AgreesWithChoice *bool                  `json:"agrees_with_choice,omitempty"`
	Explanation      string                 `json:"explanation,omitempty"`
	Sources          SourcesDTO             `json:"sources"`
	Degraded         bool                   `json:"degraded"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	CreatedAt        time.Time              `json:"created_at"`
}

// AnalyzeResponse adds the per-call extraction details to the stored analysis.
type AnalyzeResponse struct {
	AnalysisDTO
	Extraction scoring.Extraction `json:"extraction"`
	Rationale  string             `json:"rationale,omitempty"`
}

// AnalysesResponse is the paginated history listing.
type AnalysesResponse struct {
	Items []AnalysisDTO `json:"items"`
	Total int64         `json:"total"`
}

// QuickRequest carries the inputs of the quick deciders. Unused fields are ignored.
type QuickRequest struct {
	Question string   `json:"question"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	Options  []string `json:"options"`
}

func override(importance, timeframe string) *engine.Override {
	if strings.TrimSpace(importance) == "" && strings.TrimSpace(timeframe) == "" {
		return nil
	}
	return &engine.Override{
		Importance: scoring.ParseImportance(importance),
		Timeframe:  scoring.ParseTimeframe(timeframe),
	}
}

// FromModel converts a store.Analysis into the DTO representation.
func FromModel(a store.Analysis) AnalysisDTO {
	dto := AnalysisDTO{
		ID:               a.ID,
		Text:             a.Text,
		Mode:             a.Mode,
		Importance:       a.Importance,
		Timeframe:        a.Timeframe,
		Confidence:       round2(a.Confidence),
		Valid:            a.Valid,
		Reason:           a.Reason,
		NeedsContext:     a.NeedsContext,
		Overridden:       a.Overridden,
		Options:          a.Options(),
		Ranked:           a.Ranked(),
		RecommendedIndex: a.RecommendedIndex,
		Recommended:      a.Recommended,
		SelectedIndex:    a.SelectedIndex,
		Explanation:      strings.TrimSpace(a.Explanation),
		Sources: SourcesDTO{
			Context:     a.ContextSource,
			Options:     a.OptionsSource,
			Explanation: a.ExplanationSource,
		},
		Degraded:         a.Degraded,
		ProcessingTimeMs: a.ProcessingTimeMs,
		CreatedAt:        a.CreatedAt,
	}
	if a.SelectedIndex != nil && a.Valid {
		agrees := *a.SelectedIndex == a.RecommendedIndex
		dto.AgreesWithChoice = &agrees
	}
	return dto
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
