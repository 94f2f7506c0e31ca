package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

type Chatter interface {
	Chat(ctx context.Context, message, model string, maxTokens int) (*service.Completion, error)
}

// LLMHandler handles free-form model chat
type LLMHandler struct {
	llm     Chatter
	auth    middleware.TokenValidator
	limiter *middleware.RateLimiter
}

func NewLLMHandler(llm Chatter, auth middleware.TokenValidator, limiter *middleware.RateLimiter) *LLMHandler {
	return &LLMHandler{llm: llm, auth: auth, limiter: limiter}
}

func (h *LLMHandler) RegisterRoutes(router *gin.RouterGroup) {
	llm := router.Group("/llm")
	llm.Use(middleware.AuthMiddleware(h.auth), h.limiter.RateLimitMiddleware())
	{
		llm.POST("/chat", h.Chat)
	}
}

func (h *LLMHandler) Chat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	completion, err := h.llm.Chat(c.Request.Context(), req.Message, req.Model, req.MaxTokens)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": completion.Text,
		"usage":    completion.Usage,
	})
}
