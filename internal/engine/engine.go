// Package engine runs the decision pipeline: context inference, the
// actionability gate, option generation, scoring and the recommendation text.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"decision-engine/internal/ai"
	"decision-engine/internal/scoring"
	"decision-engine/internal/util"
)

// ErrNotActionable is returned when a statement fails the actionability gate.
var ErrNotActionable = errors.New("decision not actionable")

// Mode selects which providers an analysis may use.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode normalises a free string, defaulting to local.
func ParseMode(value string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(value))) == ModeRemote {
		return ModeRemote
	}
	return ModeLocal
}

// Override is a user-chosen importance and timeframe that replaces inference.
type Override struct {
	Importance scoring.Importance `json:"importance"`
	Timeframe  scoring.Timeframe  `json:"timeframe"`
}

// Config is passed with every call. There is no process-wide engine state.
type Config struct {
	Mode     Mode
	Override *Override
	// Jitter multiplies each pro term by a uniform factor in [0.9, 1.1].
	Jitter bool
	// Random feeds jitter; nil uses a freshly seeded generator.
	Random scoring.Float64Source
}

// Request is one decision to analyze.
type Request struct {
	Text string `json:"text"`
	// Options supplied by the user. Empty means generate them.
	Options []scoring.Option `json:"options,omitempty"`
	Config  Config           `json:"-"`
}

// Sources names the provider behind each stage.
type Sources struct {
	Context     string `json:"context"`
	Options     string `json:"options"`
	Explanation string `json:"explanation"`
}

// UserSource marks options supplied with the request.
const UserSource = "user"

// Result is the outcome of one analysis. It is built once per call.
type Result struct {
	Text             string                 `json:"text"`
	Signal           scoring.ContextSignal  `json:"signal"`
	Extraction       scoring.Extraction     `json:"extraction"`
	Verdict          scoring.Verdict        `json:"verdict"`
	NeedsContext     bool                   `json:"needs_context"`
	Overridden       bool                   `json:"overridden"`
	Options          []scoring.Option       `json:"options"`
	Rationale        string                 `json:"rationale,omitempty"`
	Ranked           []scoring.ScoredOption `json:"ranked"`
	RecommendedIndex int                    `json:"recommended_index"`
	Explanation      string                 `json:"explanation"`
	Sources          Sources                `json:"sources"`
	Degraded         bool                   `json:"degraded"`
	ProcessingTime   time.Duration          `json:"processing_time"`
}

// Recommended returns the recommended option, if any.
func (r Result) Recommended() (scoring.ScoredOption, bool) {
	if len(r.Ranked) == 0 {
		return scoring.ScoredOption{}, false
	}
	return r.Ranked[0], true
}

// Engine wires providers into the pipeline.
type Engine struct {
	local  ai.Provider
	remote ai.Provider
}

// New builds an engine. remote may be nil; when set it is chained in front of
// local with the given per-call timeout.
func New(local, remote ai.Provider, timeout time.Duration) *Engine {
	if local == nil {
		local = ai.NewHeuristic(nil)
	}
	return &Engine{local: local, remote: ai.WithFallback(remote, local, timeout)}
}

// RemoteEnabled reports whether remote mode reaches a remote provider.
func (e *Engine) RemoteEnabled() bool {
	return e.remote != e.local
}

func (e *Engine) provider(cfg Config) ai.Provider {
	if cfg.Mode == ModeRemote {
		return e.remote
	}
	return e.local
}

// Context is the context stage on its own: signal, gate and hints.
type Context struct {
	Signal       scoring.ContextSignal `json:"signal"`
	Extraction   scoring.Extraction    `json:"extraction"`
	Verdict      scoring.Verdict       `json:"verdict"`
	NeedsContext bool                  `json:"needs_context"`
	Overridden   bool                  `json:"overridden"`
	Source       string                `json:"source"`
	Degraded     bool                  `json:"degraded"`
}

// InferContext extracts the context signal and applies the gate.
func (e *Engine) InferContext(ctx context.Context, text string, cfg Config) (Context, error) {
	text = strings.TrimSpace(text)

	inference, err := e.provider(cfg).InferContext(ctx, text)
	if err != nil {
		return Context{}, fmt.Errorf("infer context: %w", err)
	}

	signal := inference.Signal()
	out := Context{Extraction: extractionFor(text, inference), Source: inference.Source, Degraded: inference.Fallback}
	if cfg.Override != nil {
		signal = scoring.ContextSignal{
			Importance: scoring.ParseImportance(string(cfg.Override.Importance)),
			Timeframe:  scoring.ParseTimeframe(string(cfg.Override.Timeframe)),
			Confidence: scoring.MaxConfidence,
		}
		out.Overridden = true
	}
	out.Signal = signal
	out.Verdict = scoring.IsActionable(signal, text)
	if out.Verdict.Valid && !inference.Understood && !out.Overridden {
		out.Verdict = scoring.Verdict{Valid: false, Reason: scoring.ReasonNeedsClarification}
	}
	out.NeedsContext = !out.Overridden && signal.NeedsContext()
	return out, nil
}

// extractionFor reports the hints of the provider whose inference was used.
// Only the choice marker is read from the text itself.
func extractionFor(text string, inference ai.ContextInference) scoring.Extraction {
	local := scoring.Extract(text)
	if inference.Source == ai.HeuristicName {
		return local
	}
	return scoring.Extraction{
		ContextSignal:      inference.Signal(),
		HasChoiceMarker:    local.HasChoiceMarker,
		SuggestedQuestions: inference.SuggestedQuestions,
		BetterPhrasing:     inference.BetterPhrasing,
	}
}

// GenerateOptions proposes options for a statement.
func (e *Engine) GenerateOptions(ctx context.Context, text string, cfg Config) (ai.OptionSet, error) {
	set, err := e.provider(cfg).GenerateOptions(ctx, strings.TrimSpace(text))
	if err != nil {
		return ai.OptionSet{}, fmt.Errorf("generate options: %w", err)
	}
	return set, nil
}

// Rank scores options under a signal, with jitter when the config asks for it.
func Rank(options []scoring.Option, signal scoring.ContextSignal, cfg Config) []scoring.ScoredOption {
	if !cfg.Jitter {
		return scoring.Score(options, signal.Weighting())
	}
	src := cfg.Random
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return scoring.ScoreJittered(options, signal.Weighting(), src)
}

// Explain produces the recommendation text. Provider errors fall back to the
// local composition.
func (e *Engine) Explain(ctx context.Context, input ai.ExplanationInput, cfg Config) ai.Explanation {
	explanation, err := e.provider(cfg).Explain(ctx, input)
	if err != nil || strings.TrimSpace(explanation.Text) == "" {
		if err != nil {
			logrus.WithError(err).Warn("explanation failed, composing locally")
		}
		explanation, _ = e.local.Explain(ctx, input)
		explanation.Fallback = true
	}
	return explanation
}

// Analyze runs the whole pipeline for one request. When the statement fails the
// gate, the partial result is returned together with ErrNotActionable. User
// options that cannot be scored yield scoring.ErrInsufficientOptions.
func (e *Engine) Analyze(ctx context.Context, req Request) (Result, error) {
	timer := util.StartTimer()
	text := strings.TrimSpace(req.Text)
	cfg := req.Config

	stage, err := e.InferContext(ctx, text, cfg)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		Text:             text,
		Signal:           stage.Signal,
		Extraction:       stage.Extraction,
		Verdict:          stage.Verdict,
		NeedsContext:     stage.NeedsContext,
		Overridden:       stage.Overridden,
		RecommendedIndex: -1,
		Sources:          Sources{Context: stage.Source},
		Degraded:         stage.Degraded,
	}
	if !stage.Verdict.Valid {
		result.ProcessingTime = timer.Elapsed()
		return result, fmt.Errorf("%w: %s", ErrNotActionable, stage.Verdict.Reason)
	}

	if len(req.Options) > 0 {
		if err := scoring.ValidateOptions(req.Options); err != nil {
			result.ProcessingTime = timer.Elapsed()
			return result, err
		}
		result.Options = req.Options
		result.Sources.Options = UserSource
	} else {
		set, err := e.GenerateOptions(ctx, text, cfg)
		if err != nil {
			return Result{}, err
		}
		result.Options = set.Options
		result.Rationale = set.Rationale
		result.Sources.Options = set.Source
		result.Degraded = result.Degraded || set.Fallback
	}

	result.Ranked = Rank(result.Options, result.Signal, cfg)
	result.RecommendedIndex = scoring.RecommendedIndex(result.Ranked)

	explanation := e.Explain(ctx, ai.ExplanationInput{
		Decision: text,
		Options:  result.Options,
		Ranked:   result.Ranked,
		Context:  result.Signal,
	}, cfg)
	result.Explanation = explanation.Text
	result.Sources.Explanation = explanation.Source
	result.Degraded = result.Degraded || explanation.Fallback
	result.ProcessingTime = timer.Elapsed()

	logrus.WithFields(logrus.Fields{
		"importance":  result.Signal.Importance,
		"timeframe":   result.Signal.Timeframe,
		"confidence":  result.Signal.Confidence,
		"options":     len(result.Options),
		"recommended": result.RecommendedIndex,
		"degraded":    result.Degraded,
		"elapsed_ms":  timer.ElapsedMs(),
	}).Debug("analysis complete")
	return result, nil
}

// Agrees reports whether the user's chosen option index matches the recommendation.
func Agrees(selectedIndex int, result Result) bool {
	return selectedIndex >= 0 && selectedIndex == result.RecommendedIndex
}
