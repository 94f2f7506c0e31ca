package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

// AnalysisResult is what /soil/analyze returns for a classified photo.
type AnalysisResult struct {
	Text             string
	Characteristics  types.SoilCharacteristics
	DetectedSoilType string
	Usage            types.Usage
	Photo            *models.SoilPhoto
}

// AnalysisService classifies an uploaded photo and keeps it as a SoilPhoto
// the user can later attach to a submission.
type AnalysisService struct {
	db         *gorm.DB
	classifier *SoilClassifier
	store      PhotoStore
	log        *logger.Logger
}

func NewAnalysisService(db *gorm.DB, classifier *SoilClassifier, store PhotoStore, log *logger.Logger) *AnalysisService {
	return &AnalysisService{
		db:         db,
		classifier: classifier,
		store:      store,
		log:        log.With("service", "analysis"),
	}
}

// Analyze stores the photo, classifies it and records a SoilPhoto. The stored
// file is removed again if classification fails or the soil type is not one
// of SoilTypes.
func (s *AnalysisService) Analyze(ctx context.Context, userID uuid.UUID, filename string, image []byte, opts ClassifyOptions) (*AnalysisResult, error) {
	if !AllowedImageExtension(filename) {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, filename)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}

	mediaType := MediaTypeForFilename(filename)
	key := PhotoKey(userID, filename)
	url, err := s.store.Put(ctx, key, image, mediaType)
	if err != nil {
		return nil, err
	}

	completion, err := s.classifier.Classify(ctx, image, mediaType, opts)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	characteristics := ParseClassification(completion.Text)
	canonical, ok := NormalizeSoilType(characteristics.SoilType)
	if !ok {
		s.discard(ctx, key)
		s.log.Warn("Classifier returned unsupported soil type", "soil_type", characteristics.SoilType)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSoilType, characteristics.SoilType)
	}
	characteristics.SoilType = canonical

	photo := &models.SoilPhoto{
		UserID:        userID,
		PhotoURL:      url,
		PhotoFilename: filename,
		StorageKey:    key,
		AnalysisResult: JSONValue(map[string]interface{}{
			"analysis":        completion.Text,
			"characteristics": characteristics,
			"usage":           completion.Usage,
		}),
	}
	if err := s.db.WithContext(ctx).Create(photo).Error; err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("failed to save soil photo: %w", err)
	}

	s.log.Info("Soil photo classified", "user_id", userID, "photo_id", photo.ID, "soil_type", canonical)
	return &AnalysisResult{
		Text:             completion.Text,
		Characteristics:  characteristics,
		DetectedSoilType: canonical,
		Usage:            completion.Usage,
		Photo:            photo,
	}, nil
}

func (s *AnalysisService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("Failed to remove stored photo", "key", key, "error", err)
	}
}
