package llm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// logCallback logs chat model activity of a chain run: start, errors and a summary of
// each streamed answer.
type logCallback struct {
	logger zerolog.Logger
	wg     sync.WaitGroup
}

func newLogCallback(logger zerolog.Logger) *logCallback {
	return &logCallback{logger: logger}
}

func isChatModel(info *callbacks.RunInfo) bool {
	return info != nil && info.Component == components.ComponentOfChatModel
}

func (cb *logCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if !isChatModel(info) {
		return ctx
	}
	in := ecmodel.ConvCallbackInput(input)
	event := cb.logger.Debug().Str("node", info.Name)
	if in != nil {
		event = event.Int("messages", len(in.Messages))
		if in.Config != nil {
			event = event.Str("model", in.Config.Model)
		}
	}
	event.Msg("chat model call started")
	return ctx
}

func (cb *logCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	return ctx
}

func (cb *logCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	cb.logger.Error().Err(err).Str("node", name).Msg("chain node failed")
	return ctx
}

func (cb *logCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput drains its copy of the answer stream in the background and
// logs the chunk count, finish reason and token usage once it ends.
func (cb *logCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	if !isChatModel(info) {
		output.Close()
		return ctx
	}

	cb.wg.Add(1)
	go func() {
		defer cb.wg.Done()
		defer output.Close()

		var (
			chunks       int
			chars        int
			finishReason string
			usage        *ecmodel.TokenUsage
		)
		for {
			frame, err := output.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				cb.logger.Warn().Err(err).Int("chunks", chunks).Msg("answer stream broke")
				return
			}
			out := ecmodel.ConvCallbackOutput(frame)
			if out == nil {
				continue
			}
			if out.TokenUsage != nil {
				usage = out.TokenUsage
			}
			if out.Message == nil {
				continue
			}
			chunks++
			chars += len(out.Message.Content)
			if out.Message.ResponseMeta != nil && out.Message.ResponseMeta.FinishReason != "" {
				finishReason = out.Message.ResponseMeta.FinishReason
			}
		}

		event := cb.logger.Info().
			Int("chunks", chunks).
			Int("chars", chars).
			Str("finish_reason", finishReason)
		if usage != nil {
			event = event.Int("prompt_tokens", usage.PromptTokens).
				Int("completion_tokens", usage.CompletionTokens)
		}
		event.Msg("answer stream finished")
	}()
	return ctx
}

// wait blocks until every background stream reader has finished.
func (cb *logCallback) wait() {
	cb.wg.Wait()
}
