package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"decision-engine/internal/knowledge"
	"decision-engine/internal/scoring"
)

// ErrMalformedResponse is returned when a completion carries no usable JSON.
var ErrMalformedResponse = errors.New("malformed ai response")

// Remote turns a Completer into a Provider using the knowledge-base prompts.
type Remote struct {
	name      string
	completer Completer
	base      *knowledge.Base
	cache     *responseCache
}

// NewRemote builds a remote provider. A nil base uses the embedded knowledge base.
func NewRemote(name string, completer Completer, base *knowledge.Base) *Remote {
	if base == nil {
		base = knowledge.MustDefault()
	}
	return &Remote{name: name, completer: completer, base: base}
}

// WithCache serves replies that parsed cleanly from cache for up to ttl. scope
// names the provider and model, so changing either misses old entries. A nil
// cache or a zero ttl leaves caching off.
func (r *Remote) WithCache(cache ResponseCache, ttl time.Duration, scope string) *Remote {
	if cache != nil && ttl > 0 {
		r.cache = &responseCache{store: cache, ttl: ttl, scope: scope}
	}
	return r
}

// complete returns the reply for a prompt pair and a keep func that stores it.
// Callers invoke keep only once the reply has parsed.
func (r *Remote) complete(ctx context.Context, system, user string) (string, func(), error) {
	noop := func() {}
	if r.cache == nil {
		raw, err := r.completer.Complete(ctx, system, user)
		return raw, noop, err
	}
	key := CacheKey(r.cache.scope, system, user)
	if cached, ok := r.cache.get(ctx, key); ok {
		return cached, noop, nil
	}
	raw, err := r.completer.Complete(ctx, system, user)
	if err != nil {
		return "", noop, err
	}
	return raw, func() { r.cache.put(ctx, key, raw) }, nil
}

func (r *Remote) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

func (r *Remote) Enabled() bool {
	return r != nil && r.completer != nil
}

type contextWire struct {
	Understood         *bool    `json:"understood"`
	Importance         string   `json:"importance"`
	Timeframe          string   `json:"timeframe"`
	Confidence         *float64 `json:"confidence"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
	BetterPhrasing     string   `json:"betterPhrasing"`
}

// InferContext asks the remote model for importance, timeframe and confidence.
func (r *Remote) InferContext(ctx context.Context, text string) (ContextInference, error) {
	if !r.Enabled() {
		return ContextInference{}, ErrDisabled
	}
	raw, keep, err := r.complete(ctx, contextSystemPrompt(r.base), contextUserPrompt(text))
	if err != nil {
		return ContextInference{}, fmt.Errorf("infer context: %w", err)
	}
	block, ok := ExtractJSONObject(raw)
	if !ok {
		return ContextInference{}, fmt.Errorf("infer context: %w", ErrMalformedResponse)
	}
	var wire contextWire
	if err := json.Unmarshal([]byte(block), &wire); err != nil {
		return ContextInference{}, fmt.Errorf("infer context: %w: %v", ErrMalformedResponse, err)
	}
	keep()
	inference := sanitizeContext(wire)
	inference.Source = r.name
	return inference, nil
}

func sanitizeContext(wire contextWire) ContextInference {
	inference := ContextInference{
		Understood:         true,
		Importance:         scoring.ParseImportance(wire.Importance),
		Timeframe:          scoring.ParseTimeframe(wire.Timeframe),
		Confidence:         0.5,
		SuggestedQuestions: trimItems(wire.SuggestedQuestions),
		BetterPhrasing:     strings.TrimSpace(wire.BetterPhrasing),
	}
	if wire.Understood != nil {
		inference.Understood = *wire.Understood
	}
	if wire.Confidence != nil {
		inference.Confidence = *wire.Confidence
	}
	inference.Confidence = scoring.ClampConfidence(inference.Confidence)
	if len(inference.SuggestedQuestions) == 0 {
		inference.SuggestedQuestions = nil
	}
	return inference
}

// GenerateOptions asks the remote model for options. Unparseable replies degrade
// to mined options and then to the placeholder pair.
func (r *Remote) GenerateOptions(ctx context.Context, text string) (OptionSet, error) {
	if !r.Enabled() {
		return OptionSet{}, ErrDisabled
	}
	raw, keep, err := r.complete(ctx, optionsSystemPrompt(r.base), optionsUserPrompt(text))
	if err != nil {
		return OptionSet{}, fmt.Errorf("generate options: %w", err)
	}
	set := parseOptionSet(raw)
	if !set.Mined && !set.Placeholder {
		keep()
	}
	set.Source = r.name
	return set, nil
}

// Explain asks the remote model for a plain-text recommendation.
func (r *Remote) Explain(ctx context.Context, input ExplanationInput) (Explanation, error) {
	if !r.Enabled() {
		return Explanation{}, ErrDisabled
	}
	raw, keep, err := r.complete(ctx, analysisSystemPrompt(r.base), analysisUserPrompt(input))
	if err != nil {
		return Explanation{}, fmt.Errorf("explain: %w", err)
	}
	text := strings.TrimSpace(stripCodeFence(raw))
	if text == "" {
		return Explanation{}, fmt.Errorf("explain: %w", ErrMalformedResponse)
	}
	keep()
	return Explanation{Text: text, Source: r.name}, nil
}
