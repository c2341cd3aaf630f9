package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/dyike/QuantLens/config"
)

// NewChatModel builds the chat model of the configured provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      apiKey,
			BaseURL:     cfg.ResolvedBackendURL(),
			Model:       cfg.ResolvedModel(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create DeepSeek model: %w", err)
		}
		return chatModel, nil

	case config.ProviderPerplexity:
		chatModel, err := NewPerplexityModel(PerplexityConfig{
			BaseURL:     cfg.ResolvedBackendURL(),
			APIKey:      apiKey,
			Model:       cfg.ResolvedModel(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Perplexity model: %w", err)
		}
		return chatModel, nil

	case config.ProviderOpenAI:
		maxTokens := cfg.MaxTokens
		temperature := cfg.Temperature
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     cfg.ResolvedBackendURL(),
			APIKey:      apiKey,
			Model:       cfg.ResolvedModel(),
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return chatModel, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
