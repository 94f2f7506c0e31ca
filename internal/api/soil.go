package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const invalidFileTypeMessage = "Invalid file type. Allowed: PNG, JPG, JPEG, WEBP"

type SoilAnalyzer interface {
	Analyze(ctx context.Context, userID uuid.UUID, filename string, image []byte, opts service.ClassifyOptions) (*service.AnalysisResult, error)
}

type SoilSubmitter interface {
	Submit(ctx context.Context, userID uuid.UUID, req types.SoilSubmitRequest, clientIP string) (*service.SubmissionResult, error)
}

// SoilHandler serves photo classification and confirmed-soil submission
type SoilHandler struct {
	analyzer  SoilAnalyzer
	submitter SoilSubmitter
	auth      middleware.TokenValidator
	limiter   *middleware.RateLimiter
}

func NewSoilHandler(analyzer SoilAnalyzer, submitter SoilSubmitter, auth middleware.TokenValidator, limiter *middleware.RateLimiter) *SoilHandler {
	return &SoilHandler{
		analyzer:  analyzer,
		submitter: submitter,
		auth:      auth,
		limiter:   limiter,
	}
}

func (h *SoilHandler) RegisterRoutes(router *gin.RouterGroup) {
	soil := router.Group("/soil")
	soil.Use(middleware.AuthMiddleware(h.auth), h.limiter.RateLimitMiddleware())
	{
		soil.POST("/analyze", h.Analyze)
		soil.POST("/submit", h.Submit)
	}
}

// readImage pulls the "image" form file and rejects disallowed extensions
// before anything is read or sent upstream.
func readImage(c *gin.Context, missingMessage string) (string, []byte, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingMessage})
		return "", nil, false
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file selected"})
		return "", nil, false
	}
	if !service.AllowedImageExtension(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidFileTypeMessage})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing error: " + err.Error()})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing error: " + err.Error()})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

func formInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.PostForm(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *SoilHandler) Analyze(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filename, data, ok := readImage(c, "No image file provided")
	if !ok {
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), userID, filename, data, service.ClassifyOptions{
		Model:     c.PostForm("model"),
		MaxTokens: formInt(c, "max_tokens"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"soil_analysis":      result.Text,
		"characteristics":    result.Characteristics,
		"detected_soil_type": result.DetectedSoilType,
		"soil_photo_id":      result.Photo.ID,
		"photo_url":          result.Photo.PhotoURL,
		"usage":              result.Usage,
	})
}

func (h *SoilHandler) Submit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.SoilSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.submitter.Submit(c.Request.Context(), userID, req, service.ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}

	rec := result.Recommendation
	c.JSON(http.StatusOK, gin.H{
		"message":                 "Soil analysis submitted successfully",
		"soil_analysis_record":    result.SoilAnalysis,
		"weather_data_id":         result.WeatherData.ID,
		"crop_prediction_id":      result.CropPrediction.ID,
		"crop_recommendation_ids": result.CropRecommendationIDs,
		"crop_prediction":         result.CropPrediction,
		"recommendations":         recommendationsPayload(rec.Parsed),
		"location":                rec.Location,
		"weather_summary":         rec.WeatherSummary,
		"forecast_summary":        rec.ForecastSummary,
		"coordinates_used":        result.Coordinates,
		"usage":                   rec.Usage,
	})
}

// recommendationsPayload returns the parsed bundle, or the raw model text when
// it could not be parsed.
func recommendationsPayload(parsed service.ParsedRecommendations) interface{} {
	if bundle := parsed.Bundle(); bundle != nil {
		return bundle
	}
	return parsed.Raw
}
