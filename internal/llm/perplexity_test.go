package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/QuantLens/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPerplexityServer(t *testing.T, handler func(w http.ResponseWriter, req completionRequest)) *PerplexityModel {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))

		var req completionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(server.Close)

	m, err := NewPerplexityModel(PerplexityConfig{
		BaseURL:     server.URL,
		APIKey:      "pplx-test",
		Model:       "sonar-pro",
		MaxTokens:   512,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	return m
}

func TestPerplexityStream(t *testing.T) {
	m := newPerplexityServer(t, func(w http.ResponseWriter, req completionRequest) {
		assert.True(t, req.Stream)
		assert.Equal(t, "sonar-pro", req.Model)
		assert.Equal(t, 512, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"citations":["https://a.example"],"choices":[{"delta":{"content":"SPY rallied "}}]}`+"\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, `data: {"citations":["https://a.example","https://b.example"],"choices":[{"delta":{"content":"[2]."},"finish_reason":"stop"}],"usage":{"prompt_tokens":20,"completion_tokens":4,"total_tokens":24}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{
		schema.SystemMessage("you are an analyst"),
		schema.UserMessage("analyze SPY"),
	})
	require.NoError(t, err)

	doc := stream.Consume(NewMessageSource(sr))
	require.False(t, doc.Failed())
	assert.Equal(t, "SPY rallied [2].", doc.Body)
	require.Len(t, doc.References, 2)
	assert.Equal(t, "https://b.example", doc.References[1].URL)
}

func TestPerplexityStreamFinishMeta(t *testing.T) {
	m := newPerplexityServer(t, func(w http.ResponseWriter, req completionRequest) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`+"\n\n")
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	msg, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	assert.Equal(t, 4, msg.ResponseMeta.Usage.TotalTokens)
	assert.Nil(t, msg.Extra)

	_, err = sr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPerplexityStreamBadChunk(t *testing.T) {
	m := newPerplexityServer(t, func(w http.ResponseWriter, req completionRequest) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"part"}}]}`+"\n\n")
		fmt.Fprint(w, "data: {broken\n\n")
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)

	doc := stream.Consume(NewMessageSource(sr))
	assert.True(t, doc.Failed())
	assert.Contains(t, doc.Failure, "decode stream chunk")
}

func TestPerplexityHTTPError(t *testing.T) {
	m := newPerplexityServer(t, func(w http.ResponseWriter, req completionRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	})

	_, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPerplexityGenerate(t *testing.T) {
	m := newPerplexityServer(t, func(w http.ResponseWriter, req completionRequest) {
		assert.False(t, req.Stream)
		assert.Equal(t, "sonar", req.Model)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"citations":["https://a.example"],"choices":[{"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}]}`)
	})

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, model.WithModel("sonar"))
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Content)
	assert.Equal(t, []string{"https://a.example"}, citations(msg))
}

func TestNewPerplexityModelValidation(t *testing.T) {
	_, err := NewPerplexityModel(PerplexityConfig{Model: "sonar-pro"})
	assert.Error(t, err)
	_, err = NewPerplexityModel(PerplexityConfig{APIKey: "k"})
	assert.Error(t, err)
}
