package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

type SoilReferenceStore interface {
	Add(ctx context.Context, req types.SoilTypeReferenceRequest) (*models.SoilTypeReference, error)
	List(ctx context.Context) ([]models.SoilTypeReference, error)
	Get(ctx context.Context, name string) (*models.SoilTypeReference, error)
}

type SoilReferenceHandler struct {
	refs SoilReferenceStore
	auth middleware.TokenValidator
}

func NewSoilReferenceHandler(refs SoilReferenceStore, auth middleware.TokenValidator) *SoilReferenceHandler {
	return &SoilReferenceHandler{refs: refs, auth: auth}
}

func (h *SoilReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	refs := router.Group("/soil-type-reference")
	{
		refs.GET("", h.List)
		refs.GET("/:name", h.Get)
		refs.POST("/add", middleware.AuthMiddleware(h.auth), middleware.AdminOnly(), h.Add)
	}
}

func (h *SoilReferenceHandler) Add(c *gin.Context) {
	var req types.SoilTypeReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "soil_type_name is required"})
		return
	}

	ref, err := h.refs.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"soil_type_reference": ref})
}

func (h *SoilReferenceHandler) List(c *gin.Context) {
	refs, err := h.refs.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

func (h *SoilReferenceHandler) Get(c *gin.Context) {
	ref, err := h.refs.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}
