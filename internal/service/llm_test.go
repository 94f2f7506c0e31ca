package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/testhelpers"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc, apiKey string) *LLMService {
	srv := testhelpers.NewServer(t, handler)
	return NewLLMService(LLMConfig{
		APIKey:  apiKey,
		BaseURL: srv.URL,
		Model:   "claude-test",
		Timeout: 5 * time.Second,
	}, logger.NewNop())
}

func TestLLMServiceComplete(t *testing.T) {
	var got messagesRequest
	var headers http.Header
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, messagesEndpoint, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		testhelpers.JSON(w, http.StatusOK, map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "SOIL_TYPE: "},
				{"type": "text", "text": "Andosol Soil"},
			},
			"usage": map[string]int{"input_tokens": 1200, "output_tokens": 80},
		})
	}, "sk-test")

	completion, err := llm.Complete(context.Background(), CompletionRequest{
		Prompt:    "classify",
		Image:     []byte{0xff, 0xd8},
		MediaType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, "SOIL_TYPE: Andosol Soil", completion.Text)
	assert.Equal(t, 1200, completion.Usage.InputTokens)
	assert.Equal(t, 80, completion.Usage.OutputTokens)

	assert.Equal(t, "sk-test", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultChatTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	content := got.Messages[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].Type)
	assert.Equal(t, "image", content[1].Type)
	require.NotNil(t, content[1].Source)
	assert.Equal(t, "base64", content[1].Source.Type)
	assert.Equal(t, "image/jpeg", content[1].Source.MediaType)
	assert.Equal(t, "/9g=", content[1].Source.Data)
}

func TestLLMServiceAPIError(t *testing.T) {
	llm := newTestLLM(t, testhelpers.JSONHandler(http.StatusBadRequest, map[string]interface{}{
		"type":  "error",
		"error": map[string]string{"type": "invalid_request_error", "message": "max_tokens too large"},
	}), "sk-test")

	_, err := llm.Complete(context.Background(), CompletionRequest{Prompt: "hi", MaxTokens: 999999})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "max_tokens too large")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, ProviderClaude, upErr.Provider)
}

func TestLLMServiceNoTextContent(t *testing.T) {
	llm := newTestLLM(t, testhelpers.JSONHandler(http.StatusOK, map[string]interface{}{
		"content": []map[string]string{},
	}), "sk-test")

	_, err := llm.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestLLMServiceMissingKey(t *testing.T) {
	called := false
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, "")

	_, err := llm.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.False(t, called)
}

func TestLLMServiceChat(t *testing.T) {
	var got messagesRequest
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		testhelpers.JSON(w, http.StatusOK, map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "Plant rice."}},
			"usage":   map[string]int{"input_tokens": 5, "output_tokens": 3},
		})
	}, "sk-test")

	completion, err := llm.Chat(context.Background(), "What should I plant?", "claude-other", 200)
	require.NoError(t, err)
	assert.Equal(t, "Plant rice.", completion.Text)
	assert.Equal(t, "claude-other", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages[0].Content, 1)

	_, err = llm.Chat(context.Background(), "   ", "", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
