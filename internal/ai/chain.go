package ai

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type providerChain struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
}

// WithFallback returns a provider that first tries the primary implementation and
// falls back to the provided one when the primary is unavailable, times out, or
// produces an unusable response. A zero timeout leaves the caller's deadline alone.
func WithFallback(primary, fallback Provider, timeout time.Duration) Provider {
	if primary == nil || !primary.Enabled() {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &providerChain{primary: primary, fallback: fallback, timeout: timeout}
}

func (c *providerChain) Name() string {
	return c.primary.Name()
}

func (c *providerChain) Enabled() bool {
	return c.primary.Enabled() || c.fallback.Enabled()
}

func (c *providerChain) primaryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *providerChain) logFallback(stage string, started time.Time, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"stage":    stage,
		"provider": c.primary.Name(),
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("ai provider unavailable, using " + c.fallback.Name())
}

func (c *providerChain) InferContext(ctx context.Context, text string) (ContextInference, error) {
	started := time.Now()
	pctx, cancel := c.primaryContext(ctx)
	inference, err := c.primary.InferContext(pctx, text)
	cancel()
	if err == nil {
		return inference, nil
	}
	c.logFallback("context", started, err)
	inference, err = c.fallback.InferContext(ctx, text)
	inference.Fallback = true
	return inference, err
}

func (c *providerChain) GenerateOptions(ctx context.Context, text string) (OptionSet, error) {
	started := time.Now()
	pctx, cancel := c.primaryContext(ctx)
	set, err := c.primary.GenerateOptions(pctx, text)
	cancel()
	if err == nil && !set.Placeholder {
		return set, nil
	}
	c.logFallback("options", started, err)
	fallback, ferr := c.fallback.GenerateOptions(ctx, text)
	if ferr != nil || (fallback.Placeholder && err == nil) {
		// The primary's placeholder is as good as the fallback's.
		return set, err
	}
	fallback.Fallback = true
	return fallback, nil
}

func (c *providerChain) Explain(ctx context.Context, input ExplanationInput) (Explanation, error) {
	started := time.Now()
	pctx, cancel := c.primaryContext(ctx)
	explanation, err := c.primary.Explain(pctx, input)
	cancel()
	if err == nil && strings.TrimSpace(explanation.Text) != "" {
		return explanation, nil
	}
	c.logFallback("explain", started, err)
	explanation, err = c.fallback.Explain(ctx, input)
	explanation.Fallback = true
	return explanation, err
}
