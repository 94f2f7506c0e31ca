package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/models"
)

type HistoryReader interface {
	SoilAnalyses(ctx context.Context, userID uuid.UUID) ([]models.SoilAnalysis, error)
	CropPredictions(ctx context.Context, userID uuid.UUID) ([]models.CropPrediction, error)
	CropRecommendations(ctx context.Context, userID uuid.UUID) ([]models.CropRecommendation, error)
	WeatherData(ctx context.Context, userID uuid.UUID) ([]models.WeatherData, error)
	SoilPhotos(ctx context.Context, userID uuid.UUID) ([]models.SoilPhoto, error)
}

// HistoryHandler lists the caller's stored records
type HistoryHandler struct {
	history HistoryReader
	auth    middleware.TokenValidator
}

func NewHistoryHandler(history HistoryReader, auth middleware.TokenValidator) *HistoryHandler {
	return &HistoryHandler{history: history, auth: auth}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	user := router.Group("/user")
	user.Use(middleware.AuthMiddleware(h.auth))
	{
		user.GET("/soil-analyses", listFor(h.history.SoilAnalyses))
		user.GET("/crop-predictions", listFor(h.history.CropPredictions))
		user.GET("/crop-recommendations", listFor(h.history.CropRecommendations))
		user.GET("/weather-data", listFor(h.history.WeatherData))
		user.GET("/soil-photos", listFor(h.history.SoilPhotos))
	}
}

func listFor[T any](list func(context.Context, uuid.UUID) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		records, err := list(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}
