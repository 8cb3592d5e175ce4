package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain backends.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
)

// LangChainConfig selects and configures a langchaingo model.
type LangChainConfig struct {
	Backend         string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string
	Temperature     float64
	TopP            float64
	MaxTokens       int
}

// LangChain implements Completer on top of a langchaingo model.
type LangChain struct {
	llm       llms.Model
	modelName string
	options   []llms.CallOption
}

// NewLangChain creates the configured backend.
func NewLangChain(cfg LangChainConfig) (*LangChain, error) {
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.OllamaHost != "" {
			opts = append(opts, ollama.WithServerURL(cfg.OllamaHost))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case BackendOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key required: %w", ErrDisabled)
		}
		opts := []openai.Option{openai.WithToken(cfg.OpenAIAPIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case BackendAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic api key required: %w", ErrDisabled)
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.AnthropicAPIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported langchain backend: %s", cfg.Backend)
	}

	return NewLangChainFromModel(model, cfg.Model, callOptions(cfg)...), nil
}

// NewLangChainFromModel wraps an existing langchaingo model.
func NewLangChainFromModel(model llms.Model, name string, options ...llms.CallOption) *LangChain {
	return &LangChain{llm: model, modelName: name, options: options}
}

func callOptions(cfg LangChainConfig) []llms.CallOption {
	var opts []llms.CallOption
	if cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.TopP > 0 {
		opts = append(opts, llms.WithTopP(cfg.TopP))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return opts
}

// Model returns the model name.
func (l *LangChain) Model() string {
	return l.modelName
}

// Complete sends the system and user prompts as chat messages.
func (l *LangChain) Complete(ctx context.Context, system, user string) (string, error) {
	if l == nil || l.llm == nil {
		return "", ErrDisabled
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	response, err := l.llm.GenerateContent(ctx, messages, l.options...)
	if err != nil {
		return "", fmt.Errorf("langchain generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("langchain: no response choices")
	}
	content := strings.TrimSpace(response.Choices[0].Content)
	if content == "" {
		return "", errors.New("langchain: empty content")
	}
	return content, nil
}
