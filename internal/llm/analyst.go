// Package llm streams market analyses from a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/QuantLens/internal/stream"
	"github.com/rs/zerolog"
)

// Analyst renders the analysis prompt and streams the model's answer.
type Analyst struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
	logger   zerolog.Logger
}

func NewAnalyst(ctx context.Context, chatModel model.ChatModel, logger zerolog.Logger) (*Analyst, error) {
	systemTpl, err := loadPrompt("system")
	if err != nil {
		return nil, err
	}
	userTpl, err := loadPrompt("analyze")
	if err != nil {
		return nil, err
	}

	promptTemp := prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemTpl),
		schema.UserMessage(userTpl),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemp)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx, compose.WithGraphName("market_analyst"))
	if err != nil {
		return nil, fmt.Errorf("failed to compile analyst chain: %w", err)
	}
	return &Analyst{runnable: runnable, logger: logger.With().Str("component", "llm").Logger()}, nil
}

// Stream starts the model call and returns its answer as a fragment source. The caller
// owns the source and should Close it if it stops reading early.
func (a *Analyst) Stream(ctx context.Context, in PromptInput) (*MessageSource, error) {
	a.logger.Info().Str("symbol", in.Symbol).Msg("requesting analysis")
	reader, err := a.runnable.Stream(ctx, in.variables(), compose.WithCallbacks(newLogCallback(a.logger)))
	if err != nil {
		return nil, fmt.Errorf("start analysis stream: %w", err)
	}
	return NewMessageSource(reader), nil
}

// MessageSource adapts a chat model message stream to stream.Source.
type MessageSource struct {
	reader *schema.StreamReader[*schema.Message]
	closed bool
}

var _ stream.Source = (*MessageSource)(nil)

func NewMessageSource(reader *schema.StreamReader[*schema.Message]) *MessageSource {
	return &MessageSource{reader: reader}
}

func (s *MessageSource) Recv() (stream.Fragment, error) {
	if s.closed {
		return stream.Fragment{}, io.EOF
	}
	for {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.Close()
			return stream.Fragment{}, io.EOF
		}
		if err != nil {
			s.Close()
			return stream.Fragment{}, err
		}
		if msg == nil {
			continue
		}
		return stream.Fragment{Text: msg.Content, Citations: citations(msg)}, nil
	}
}

func (s *MessageSource) Close() {
	if !s.closed {
		s.closed = true
		s.reader.Close()
	}
}

// citations lifts the provider citation list out of a message chunk. Chunks without one
// return nil so the previous list stays in force.
func citations(msg *schema.Message) []string {
	raw, ok := msg.Extra["citations"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if url, ok := item.(string); ok {
				urls = append(urls, url)
			}
		}
		return urls
	default:
		return nil
	}
}
