package store

import (
	"encoding/json"
	"strings"
	"time"

	"decision-engine/internal/engine"
	"decision-engine/internal/scoring"
)

// Analysis is one persisted decision analysis.
type Analysis struct {
	ID                string  `gorm:"primaryKey;size:36"`
	Text              string  `gorm:"type:text"`
	Mode              string  `gorm:"size:16"`
	Importance        string  `gorm:"size:16;index"`
	Timeframe         string  `gorm:"size:16;index"`
	Confidence        float64 `gorm:"index"`
	Valid             bool
	Reason            string `gorm:"size:32"`
	NeedsContext      bool
	Overridden        bool
	OptionsJSON       string `gorm:"type:text"`
	RankedJSON        string `gorm:"type:text"`
	RecommendedIndex  int
	Recommended       string `gorm:"size:255"`
	SelectedIndex     *int
	Explanation       string `gorm:"type:text"`
	ContextSource     string `gorm:"size:32"`
	OptionsSource     string `gorm:"size:32"`
	ExplanationSource string `gorm:"size:32"`
	Degraded          bool
	ProcessingTimeMs  int64
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}

// NewAnalysis flattens an engine result for persistence. selected may be nil.
func NewAnalysis(result engine.Result, mode engine.Mode, selected *int) *Analysis {
	row := &Analysis{
		Text:              result.Text,
		Mode:              string(mode),
		Importance:        string(result.Signal.Importance),
		Timeframe:         string(result.Signal.Timeframe),
		Confidence:        result.Signal.Confidence,
		Valid:             result.Verdict.Valid,
		Reason:            string(result.Verdict.Reason),
		NeedsContext:      result.NeedsContext,
		Overridden:        result.Overridden,
		RecommendedIndex:  result.RecommendedIndex,
		SelectedIndex:     selected,
		Explanation:       result.Explanation,
		ContextSource:     result.Sources.Context,
		OptionsSource:     result.Sources.Options,
		ExplanationSource: result.Sources.Explanation,
		Degraded:          result.Degraded,
		ProcessingTimeMs:  result.ProcessingTime.Milliseconds(),
	}
	if top, ok := result.Recommended(); ok {
		row.Recommended = top.Option.Name
	}
	row.SetOptions(result.Options)
	row.SetRanked(result.Ranked)
	return row
}

// SetOptions stores the option list as JSON.
func (a *Analysis) SetOptions(options []scoring.Option) {
	if options == nil {
		a.OptionsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(options)
	a.OptionsJSON = string(payload)
}

// Options returns the decoded option list.
func (a *Analysis) Options() []scoring.Option {
	if strings.TrimSpace(a.OptionsJSON) == "" {
		return nil
	}
	var out []scoring.Option
	if err := json.Unmarshal([]byte(a.OptionsJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetRanked stores the ranked options as JSON.
func (a *Analysis) SetRanked(ranked []scoring.ScoredOption) {
	if ranked == nil {
		a.RankedJSON = "[]"
		return
	}
	payload, _ := json.Marshal(ranked)
	a.RankedJSON = string(payload)
}

// Ranked returns the decoded ranking.
func (a *Analysis) Ranked() []scoring.ScoredOption {
	if strings.TrimSpace(a.RankedJSON) == "" {
		return nil
	}
	var out []scoring.ScoredOption
	if err := json.Unmarshal([]byte(a.RankedJSON), &out); err != nil {
		return nil
	}
	return out
}

// CachedResponse is a completion reply keyed by the hash of its prompts.
type CachedResponse struct {
	PromptHash string `gorm:"primaryKey;size:64"`
	Content    string `gorm:"type:text"`
	Hits       int
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index"`
}
