package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/models"
)

// HistoryService lists a user's stored records, newest first.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

func (s *HistoryService) SoilAnalyses(ctx context.Context, userID uuid.UUID) ([]models.SoilAnalysis, error) {
	analyses := []models.SoilAnalysis{}
	err := s.db.WithContext(ctx).
		Preload("SoilPhoto").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list soil analyses: %w", err)
	}
	return analyses, nil
}

func (s *HistoryService) CropPredictions(ctx context.Context, userID uuid.UUID) ([]models.CropPrediction, error) {
	predictions := []models.CropPrediction{}
	err := s.db.WithContext(ctx).
		Preload("Recommendations").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&predictions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list crop predictions: %w", err)
	}
	return predictions, nil
}

// CropRecommendations joins through crop_predictions since per-crop rows do
// not carry a user id.
func (s *HistoryService) CropRecommendations(ctx context.Context, userID uuid.UUID) ([]models.CropRecommendation, error) {
	recs := []models.CropRecommendation{}
	err := s.db.WithContext(ctx).
		Joins("JOIN crop_predictions ON crop_predictions.id = crop_recommendations.crop_prediction_id").
		Where("crop_predictions.user_id = ?", userID).
		Order("crop_recommendations.created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list crop recommendations: %w", err)
	}
	return recs, nil
}

func (s *HistoryService) WeatherData(ctx context.Context, userID uuid.UUID) ([]models.WeatherData, error) {
	records := []models.WeatherData{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("fetched_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list weather data: %w", err)
	}
	return records, nil
}

func (s *HistoryService) SoilPhotos(ctx context.Context, userID uuid.UUID) ([]models.SoilPhoto, error) {
	photos := []models.SoilPhoto{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list soil photos: %w", err)
	}
	return photos, nil
}
