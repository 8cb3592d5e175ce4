package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"decision-engine/internal/ai"
	"decision-engine/internal/knowledge"
)

// RemoteProvider builds the configured remote provider. It returns nil without
// error when remote inference is switched off or lacks credentials. cache may be nil.
func RemoteProvider(cfg Config, base *knowledge.Base, cache ai.ResponseCache) (ai.Provider, error) {
	completer, name, model, err := remoteCompleter(cfg)
	if errors.Is(err, ai.ErrDisabled) {
		logrus.WithField("provider", cfg.AI.Provider).Info("remote ai disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completer == nil {
		return nil, nil
	}
	logrus.WithFields(logrus.Fields{"provider": name, "model": model}).Debug("remote completer ready")
	completer = ai.WithRetry(completer, cfg.AI.MaxRetries)
	return ai.NewRemote(name, completer, base).WithCache(cache, cfg.AI.CacheTTL, name+"/"+model), nil
}

// remoteCompleter returns the completer with its provider and resolved model names.
func remoteCompleter(cfg Config) (ai.Completer, string, string, error) {
	switch cfg.AI.Provider {
	case ProviderNone:
		return nil, "", "", nil
	case ProviderOpenAI:
		client, err := ai.NewClient(ai.Config{
			APIKey:            cfg.AI.APIKey,
			Model:             cfg.AI.Model,
			BaseURL:           cfg.AI.BaseURL,
			Temperature:       cfg.AI.Temperature,
			TopP:              cfg.AI.TopP,
			MaxTokens:         cfg.AI.MaxTokens,
			Timeout:           cfg.AI.Timeout,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		})
		if err != nil {
			return nil, "", "", err
		}
		return client, ProviderOpenAI, client.Model(), nil
	case ProviderLangChain:
		model := cfg.LangChain.Model
		if model == "" {
			model = cfg.AI.Model
		}
		lc, err := ai.NewLangChain(ai.LangChainConfig{
			Backend:         cfg.LangChain.Backend,
			Model:           model,
			OpenAIAPIKey:    cfg.AI.APIKey,
			OpenAIBaseURL:   cfg.AI.BaseURL,
			AnthropicAPIKey: cfg.LangChain.AnthropicAPIKey,
			OllamaHost:      cfg.LangChain.OllamaHost,
			Temperature:     cfg.AI.Temperature,
			TopP:            cfg.AI.TopP,
			MaxTokens:       cfg.AI.MaxTokens,
		})
		if err != nil {
			return nil, "", "", err
		}
		return lc, ProviderLangChain + "/" + cfg.LangChain.Backend, lc.Model(), nil
	default:
		return nil, "", "", fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
