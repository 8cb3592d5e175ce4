package ai

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"decision-engine/internal/knowledge"
	"decision-engine/internal/scoring"
)

// HeuristicName identifies results produced without a remote model.
const HeuristicName = "heuristic"

const maxAlternatives = 4

// Heuristic is the local provider. It is always enabled and deterministic.
type Heuristic struct {
	base *knowledge.Base
}

// NewHeuristic builds a local provider. A nil base uses the embedded knowledge base.
func NewHeuristic(base *knowledge.Base) *Heuristic {
	if base == nil {
		base = knowledge.MustDefault()
	}
	return &Heuristic{base: base}
}

func (h *Heuristic) Name() string { return HeuristicName }

func (h *Heuristic) Enabled() bool { return h != nil }

// InferContext runs keyword extraction and the actionability gate.
func (h *Heuristic) InferContext(_ context.Context, text string) (ContextInference, error) {
	ext := scoring.Extract(text)
	verdict := scoring.IsActionable(ext.ContextSignal, text)
	return ContextInference{
		Understood:         verdict.Valid,
		Importance:         ext.Importance,
		Timeframe:          ext.Timeframe,
		Confidence:         ext.Confidence,
		SuggestedQuestions: ext.SuggestedQuestions,
		BetterPhrasing:     ext.BetterPhrasing,
		Source:             HeuristicName,
	}, nil
}

// GenerateOptions builds options from alternatives named in the text, then from
// the best matching domain template, then the placeholder pair.
func (h *Heuristic) GenerateOptions(_ context.Context, text string) (OptionSet, error) {
	if alternatives := SplitAlternatives(text); len(alternatives) >= 2 {
		options := make([]scoring.Option, 0, len(alternatives))
		for _, alt := range alternatives {
			lists := h.base.Alternatives.Change
			if h.base.IsStatusQuo(alt) {
				lists = h.base.Alternatives.StatusQuo
			}
			options = append(options, scoring.Option{
				Name: alt,
				Pros: append([]string(nil), lists.Pros...),
				Cons: append([]string(nil), lists.Cons...),
			})
		}
		return OptionSet{
			Options:   options,
			Rationale: "Options are the alternatives named in the question.",
			Source:    HeuristicName,
		}, nil
	}
	if domain, ok := h.base.Match(text); ok {
		options := make([]scoring.Option, 0, len(domain.Options))
		for _, opt := range domain.Options {
			options = append(options, scoring.Option{
				Name: opt.Name,
				Pros: append([]string(nil), opt.Pros...),
				Cons: append([]string(nil), opt.Cons...),
			})
		}
		return OptionSet{
			Options:   options,
			Rationale: "Typical paths for a " + domain.Name + " decision.",
			Source:    HeuristicName,
		}, nil
	}
	return OptionSet{Options: PlaceholderOptions(), Placeholder: true, Source: HeuristicName}, nil
}

// Explain composes the deterministic recommendation text.
func (h *Heuristic) Explain(_ context.Context, input ExplanationInput) (Explanation, error) {
	ranked := input.Ranked
	if len(ranked) == 0 {
		ranked = scoring.Score(input.Options, input.Context.Weighting())
	}
	return Explanation{
		Text:   scoring.Compose(input.Decision, ranked, input.Context),
		Source: HeuristicName,
	}, nil
}

var (
	leadInRe    = regexp.MustCompile(`(?i)^(?:should\s+(?:i|we)|is\s+it\s+better\s+to|would\s+it\s+be\s+better\s+to|do\s+i|can\s+i)\s+`)
	oxfordOrRe  = regexp.MustCompile(`(?i),\s*or\s+`)
	listSplitRe = regexp.MustCompile(`(?i),\s*(?:or\s+)?`)
	orSplitRe   = regexp.MustCompile(`(?i)\s+or\s+`)
)

// SplitAlternatives pulls "A or B" style alternatives out of a question. It
// returns nil when fewer than two are named.
func SplitAlternatives(text string) []string {
	s := strings.TrimRight(strings.TrimSpace(text), "?!. ")
	s = leadInRe.ReplaceAllString(s, "")
	var parts []string
	if oxfordOrRe.MatchString(s) {
		parts = listSplitRe.Split(s, -1)
	} else {
		parts = orSplitRe.Split(s, -1)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.EqualFold(p, "not") && len(out) > 0 {
			p = "don't " + lowerFirst(out[0])
		}
		out = append(out, upperFirst(p))
	}
	if len(out) < 2 {
		return nil
	}
	if len(out) > maxAlternatives {
		out = out[:maxAlternatives]
	}
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
