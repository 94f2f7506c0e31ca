package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	anthropicVersion  = "2023-06-01"
	messagesEndpoint  = "/v1/messages"
	defaultChatTokens = 1000
)

// LLMConfig configures the generative model client.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// CompletionRequest is a single-turn prompt, optionally with one image.
type CompletionRequest struct {
	Model     string
	MaxTokens int
	Prompt    string
	Image     []byte
	MediaType string
}

// Completion is the model's text answer plus token accounting.
type Completion struct {
	Text  string
	Usage types.Usage
}

// LLMClient is the generative model used by the soil classifier, the
// recommendation engine and the chat endpoint.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// LLMService talks to the Anthropic Messages API
type LLMService struct {
	client *resty.Client
	apiKey string
	model  string
	log    *logger.Logger
}

type messageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Source *messageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   types.Usage    `json:"usage"`
}

type apiErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService creates a new LLMService instance. A missing API key is not an
// error here; every call fails until one is configured.
func NewLLMService(cfg LLMConfig, log *logger.Logger) *LLMService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")

	return &LLMService{
		client: client,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		log:    log.With("service", "llm"),
	}
}

// DefaultModel is the model used when a request does not name one.
func (s *LLMService) DefaultModel() string {
	return s.model
}

// Complete sends one user turn to the model.
func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if s.apiKey == "" {
		return nil, upstream(ProviderClaude, fmt.Errorf("CLAUDE_API_KEY %w", ErrNotConfigured))
	}

	model := req.Model
	if model == "" {
		model = s.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultChatTokens
	}

	content := []contentBlock{{Type: "text", Text: req.Prompt}}
	if len(req.Image) > 0 {
		content = append(content, contentBlock{
			Type: "image",
			Source: &messageSource{
				Type:      "base64",
				MediaType: req.MediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}

	var result messagesResponse
	var apiErr apiErrorResponse
	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", s.apiKey).
		SetBody(messagesRequest{
			Model:     model,
			MaxTokens: maxTokens,
			Messages:  []message{{Role: "user", Content: content}},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(messagesEndpoint)
	if err != nil {
		s.log.Error("Model request failed", "model", model, "error", err)
		return nil, upstream(ProviderClaude, fmt.Errorf("model request failed: %w", err))
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		s.log.Error("Model returned error", "model", model, "status", resp.StatusCode(), "message", msg)
		return nil, upstream(ProviderClaude, fmt.Errorf("model API error (%d): %s", resp.StatusCode(), msg))
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, upstream(ProviderClaude, fmt.Errorf("model returned no text content"))
	}

	s.log.Debug("Model call complete",
		"model", model,
		"duration", time.Since(start),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
	)

	return &Completion{Text: text.String(), Usage: result.Usage}, nil
}

// Chat is a free-form single-turn conversation with the model.
func (s *LLMService) Chat(ctx context.Context, msg, model string, maxTokens int) (*Completion, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	return s.Complete(ctx, CompletionRequest{Model: model, MaxTokens: maxTokens, Prompt: msg})
}
