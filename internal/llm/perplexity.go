package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-resty/resty/v2"
)

const sseDataPrefix = "data:"

// PerplexityConfig configures the Perplexity chat completions client.
type PerplexityConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// PerplexityModel is a chat model for the Perplexity API. Unlike the generic
// OpenAI-compatible client it keeps the citation list Perplexity attaches to each
// completion, exposing it as Message.Extra["citations"].
type PerplexityModel struct {
	client *resty.Client
	config PerplexityConfig
}

var _ model.ChatModel = (*PerplexityModel)(nil)

func NewPerplexityModel(cfg PerplexityConfig) (*PerplexityModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("perplexity api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("perplexity model is required")
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetAuthToken(cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &PerplexityModel{client: client, config: cfg}, nil
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Stream      bool                `json:"stream"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	Delta        completionMessage `json:"delta"`
	FinishReason string            `json:"finish_reason"`
}

type completionResponse struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Citations []string           `json:"citations"`
	Choices   []completionChoice `json:"choices"`
	Usage     *completionUsage   `json:"usage"`
}

func (m *PerplexityModel) request(input []*schema.Message, stream bool, opts []model.Option) completionRequest {
	temperature := m.config.Temperature
	maxTokens := m.config.MaxTokens
	name := m.config.Model
	options := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &name,
	}, opts...)

	req := completionRequest{
		Model:       *options.Model,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		Stop:        options.Stop,
		Stream:      stream,
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, completionMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return req
}

// Generate returns the whole completion in one message.
func (m *PerplexityModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var result completionResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(m.request(input, false, opts)).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("perplexity request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("perplexity returned %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("perplexity returned no choices")
	}

	choice := result.Choices[0]
	return toMessage(choice.Message.Content, choice.FinishReason, result.Citations, result.Usage), nil
}

// Stream posts a streaming completion and relays its server-sent events as message
// chunks.
func (m *PerplexityModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(m.request(input, true, opts)).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("perplexity request failed: %w", err)
	}

	body := resp.RawBody()
	if resp.IsError() {
		defer body.Close()
		detail, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, fmt.Errorf("perplexity returned %s: %s", resp.Status(), strings.TrimSpace(string(detail)))
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		defer body.Close()
		if err := relayEvents(body, sw); err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

// BindTools is a no-op; the analysis chain never calls tools.
func (m *PerplexityModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func relayEvents(body io.Reader, sw *schema.StreamWriter[*schema.Message]) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return nil
		}

		var chunk completionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}

		var content, finishReason string
		if len(chunk.Choices) > 0 {
			content = chunk.Choices[0].Delta.Content
			finishReason = chunk.Choices[0].FinishReason
		}
		if closed := sw.Send(toMessage(content, finishReason, chunk.Citations, chunk.Usage), nil); closed {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func toMessage(content, finishReason string, citations []string, usage *completionUsage) *schema.Message {
	msg := schema.AssistantMessage(content, nil)
	if len(citations) > 0 {
		msg.Extra = map[string]any{"citations": citations}
	}
	if finishReason != "" || usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{FinishReason: finishReason}
		if usage != nil {
			msg.ResponseMeta.Usage = &schema.TokenUsage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			}
		}
	}
	return msg
}
