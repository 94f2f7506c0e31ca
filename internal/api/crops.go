package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const invalidCoordinatesMessage = "Invalid latitude or longitude format"

type CropAdvisor interface {
	Recommend(ctx context.Context, req service.AdviceRequest) (*service.Advice, error)
	RecommendWithSoil(ctx context.Context, filename string, image []byte, req service.AdviceRequest) (*service.Advice, error)
}

// CropHandler serves crop recommendations that are not persisted
type CropHandler struct {
	advisor CropAdvisor
	auth    middleware.TokenValidator
	limiter *middleware.RateLimiter
}

func NewCropHandler(advisor CropAdvisor, auth middleware.TokenValidator, limiter *middleware.RateLimiter) *CropHandler {
	return &CropHandler{advisor: advisor, auth: auth, limiter: limiter}
}

func (h *CropHandler) RegisterRoutes(router *gin.RouterGroup) {
	crops := router.Group("/crops")
	{
		crops.GET("/recommend", h.limiter.RateLimitMiddleware(), h.Recommend)
		crops.POST("/recommend", h.limiter.RateLimitMiddleware(), h.Recommend)
		crops.POST("/recommend-with-soil",
			middleware.AuthMiddleware(h.auth),
			h.limiter.RateLimitMiddleware(),
			h.RecommendWithSoil,
		)
	}
}

func (h *CropHandler) Recommend(c *gin.Context) {
	var req types.CropRecommendRequest
	var err error
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidCoordinatesMessage})
		return
	}

	advice, err := h.advisor.Recommend(c.Request.Context(), service.AdviceRequest{
		Lat:       req.Lat.Float64(),
		Lon:       req.Lon.Float64(),
		SoilText:  req.SoilAnalysis,
		ClientIP:  service.ClientIP(c.Request),
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"recommendations":  recommendationsPayload(advice.Result.Parsed),
		"location":         advice.Result.Location,
		"weather_summary":  advice.Result.WeatherSummary,
		"forecast_summary": advice.Result.ForecastSummary,
		"usage":            advice.Result.Usage,
		"coordinates_used": advice.Coordinates,
	}
	if req.SoilAnalysis != "" {
		resp["soil_analysis"] = req.SoilAnalysis
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CropHandler) RecommendWithSoil(c *gin.Context) {
	filename, data, ok := readImage(c, "No soil image file provided")
	if !ok {
		return
	}

	var lat, lon *float64
	if latStr, lonStr := c.PostForm("lat"), c.PostForm("lon"); latStr != "" && lonStr != "" {
		latVal, latErr := strconv.ParseFloat(latStr, 64)
		lonVal, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidCoordinatesMessage})
			return
		}
		lat, lon = &latVal, &lonVal
	}

	advice, err := h.advisor.RecommendWithSoil(c.Request.Context(), filename, data, service.AdviceRequest{
		Lat:       lat,
		Lon:       lon,
		ClientIP:  service.ClientIP(c.Request),
		Model:     c.PostForm("model"),
		MaxTokens: formInt(c, "max_tokens"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations":  recommendationsPayload(advice.Result.Parsed),
		"location":         advice.Result.Location,
		"weather_summary":  advice.Result.WeatherSummary,
		"soil_analysis":    advice.SoilText,
		"characteristics":  advice.Soil,
		"coordinates_used": advice.Coordinates,
		"usage": gin.H{
			"soil_analysis_tokens":   advice.SoilUsage,
			"recommendations_tokens": advice.Result.Usage,
		},
	})
}
