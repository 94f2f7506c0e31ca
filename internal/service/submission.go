package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	weatherDataSource = "openweathermap"
	weatherDataTTL    = time.Hour
)

// SubmissionResult holds every row written for one submission.
type SubmissionResult struct {
	SoilAnalysis          *models.SoilAnalysis
	WeatherData           *models.WeatherData
	CropPrediction        *models.CropPrediction
	CropRecommendationIDs []uuid.UUID
	Coordinates           *Coordinates
	Recommendation        *RecommendationResult
}

// SubmissionService turns a confirmed soil classification into stored crop
// advice.
type SubmissionService struct {
	db      *gorm.DB
	locator LocationResolver
	weather WeatherProvider
	engine  *RecommendationEngine
	now     func() time.Time
	log     *logger.Logger
}

func NewSubmissionService(db *gorm.DB, locator LocationResolver, weather WeatherProvider, engine *RecommendationEngine, log *logger.Logger) *SubmissionService {
	return &SubmissionService{
		db:      db,
		locator: locator,
		weather: weather,
		engine:  engine,
		now:     time.Now,
		log:     log.With("service", "submission"),
	}
}

// ValidateSoilFields checks that all seven fields are present and returns
// the characteristics with the soil type in canonical form.
func ValidateSoilFields(c types.SoilCharacteristics) (types.SoilCharacteristics, error) {
	required := []struct {
		name  string
		value string
	}{
		{"classified_soil_type", c.SoilType},
		{"soil_color", c.SoilColor},
		{"soil_texture", c.SoilTexture},
		{"soil_drainage", c.SoilDrainage},
		{"soil_location_type", c.SoilLocationType},
		{"soil_fertility", c.SoilFertility},
		{"soil_moisture", c.SoilMoisture},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return c, fmt.Errorf("%w: missing required field: %s", ErrInvalidInput, f.name)
		}
	}

	canonical, ok := NormalizeSoilType(c.SoilType)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrUnsupportedSoilType, c.SoilType)
	}
	c.SoilType = canonical
	return c, nil
}

// Submit validates the request, makes the external calls and then writes the
// analysis, weather snapshot, prediction and per-crop rows in one transaction.
func (s *SubmissionService) Submit(ctx context.Context, userID uuid.UUID, req types.SoilSubmitRequest, clientIP string) (*SubmissionResult, error) {
	soil, err := ValidateSoilFields(req.SoilCharacteristics)
	if err != nil {
		return nil, err
	}

	var photoID *uuid.UUID
	if req.SoilPhotoID != "" {
		id, err := s.ownedPhoto(ctx, userID, req.SoilPhotoID)
		if err != nil {
			return nil, err
		}
		photoID = &id
	}

	coords, err := resolveCoordinates(ctx, s.locator, req.Lat.Float64(), req.Lon.Float64(), clientIP)
	if err != nil {
		return nil, err
	}

	bundle, err := s.weather.GetWeather(ctx, coords.Lat, coords.Lon)
	if err != nil {
		return nil, err
	}
	loc := TimezoneLocation(bundle)
	historical := s.weather.HistoricalSummary(ctx, coords.Lat, coords.Lon, historicalYears, loc)

	soilText := SoilText(soil)
	rec, err := s.engine.Recommend(ctx, bundle, soilText, historical, RecommendOptions{})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	analysis := &models.SoilAnalysis{
		UserID:                   userID,
		ClassifiedSoilType:       soil.SoilType,
		SoilColor:                soil.SoilColor,
		SoilTexture:              soil.SoilTexture,
		SoilDrainage:             soil.SoilDrainage,
		SoilLocationType:         soil.SoilLocationType,
		SoilFertility:            soil.SoilFertility,
		SoilMoisture:             soil.SoilMoisture,
		ClassificationConfidence: req.ClassificationConfidence,
		ClassificationMethod:     withFallback(req.ClassificationMethod, "llm_vision"),
		Latitude:                 coords.Lat,
		Longitude:                coords.Lon,
		Province:                 withFallback(req.Province, regionOf(coords, bundle)),
		City:                     withFallback(req.City, cityOf(coords, bundle)),
		CoordinateSource:         coords.Source,
		IPAddress:                coords.ClientIP,
		LLMAPICalls:              1,
	}
	weather := weatherRecord(userID, bundle, coords, now, loc)
	prediction, crops := predictionRecords(userID, rec)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ref models.SoilTypeReference
		err := tx.Where("soil_type_name = ?", soil.SoilType).First(&ref).Error
		switch {
		case err == nil:
			analysis.SoilTypeReferenceID = &ref.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up soil type reference: %w", err)
		}

		if err := tx.Create(analysis).Error; err != nil {
			return fmt.Errorf("failed to save soil analysis: %w", err)
		}
		if photoID != nil {
			if err := tx.Model(&models.SoilPhoto{}).
				Where("id = ?", *photoID).
				Update("soil_analysis_id", analysis.ID).Error; err != nil {
				return fmt.Errorf("failed to link soil photo: %w", err)
			}
		}
		if err := tx.Create(weather).Error; err != nil {
			return fmt.Errorf("failed to save weather data: %w", err)
		}

		prediction.SoilAnalysisID = analysis.ID
		prediction.WeatherDataID = weather.ID
		if err := tx.Create(prediction).Error; err != nil {
			return fmt.Errorf("failed to save crop prediction: %w", err)
		}
		for i := range crops {
			crops[i].CropPredictionID = prediction.ID
			if err := tx.Create(&crops[i]).Error; err != nil {
				return fmt.Errorf("failed to save crop recommendation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("Submission rolled back", "user_id", userID, "error", err)
		return nil, err
	}

	ids := make([]uuid.UUID, len(crops))
	for i := range crops {
		ids[i] = crops[i].ID
	}
	prediction.Recommendations = crops

	s.log.Info("Soil submission stored",
		"user_id", userID,
		"soil_analysis_id", analysis.ID,
		"crop_prediction_id", prediction.ID,
		"crops", len(crops),
		"parse", rec.Parsed.Kind.String(),
	)
	return &SubmissionResult{
		SoilAnalysis:          analysis,
		WeatherData:           weather,
		CropPrediction:        prediction,
		CropRecommendationIDs: ids,
		Coordinates:           coords,
		Recommendation:        rec,
	}, nil
}

func (s *SubmissionService) ownedPhoto(ctx context.Context, userID uuid.UUID, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: soil photo not found", ErrNotFound)
	}
	var photo models.SoilPhoto
	err = s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, fmt.Errorf("%w: soil photo not found", ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load soil photo: %w", err)
	}
	return id, nil
}

func weatherRecord(userID uuid.UUID, bundle *types.WeatherBundle, coords *Coordinates, now time.Time, loc *time.Location) *models.WeatherData {
	current := bundle.Current
	rainfall := current.Rain1h
	if rainfall == nil {
		zero := 0.0
		rainfall = &zero
	}
	expires := now.Add(weatherDataTTL)

	warnings := make([]string, 0, len(bundle.Alerts))
	for _, a := range bundle.Alerts {
		warnings = append(warnings, fmt.Sprintf("%s: %s", a.Event, a.Description))
	}

	return &models.WeatherData{
		UserID:             userID,
		Latitude:           coords.Lat,
		Longitude:          coords.Lon,
		LocationName:       bundle.Location.Name,
		CurrentTemperature: &current.Temperature,
		CurrentHumidity:    &current.Humidity,
		CurrentRainfall:    rainfall,
		CurrentWindSpeed:   &current.WindSpeed,
		CurrentPressure:    &current.Pressure,
		Forecast7Days:      JSONValue(bundle.Daily),
		Season:             InferSeason(now.In(loc).Month()),
		WeatherWarnings:    strings.Join(warnings, "\n"),
		DataSource:         weatherDataSource,
		FetchedAt:          now,
		ExpiresAt:          &expires,
	}
}

func predictionRecords(userID uuid.UUID, rec *RecommendationResult) (*models.CropPrediction, []models.CropRecommendation) {
	parsed := rec.Parsed
	prediction := &models.CropPrediction{
		UserID:              userID,
		RecommendedCrops:    JSONValue(parsed.Crops),
		SeasonalAdvice:      TextValue(parsed.Field("seasonal_advice")),
		WeatherWarnings:     TextValue(parsed.Field("weather_warnings")),
		SoilTreatments:      JSONValue(parsed.Field("soil_treatments")),
		RiskFactors:         JSONValue(parsed.Field("risk_factors")),
		SuccessProbability:  IntValue(parsed.Field("success_probability")),
		BestPlantingDate:    ParseISODate(parsed.Field("best_planting_date")),
		ExpectedHarvestDate: ParseISODate(parsed.Field("expected_harvest_date")),
		PlantingWindowStart: ParseISODate(parsed.Field("planting_window_start")),
		PlantingWindowEnd:   ParseISODate(parsed.Field("planting_window_end")),
		RawResponse:         rec.Raw,
	}

	crops := make([]models.CropRecommendation, 0, len(parsed.Crops))
	for _, c := range parsed.Crops {
		crops = append(crops, CropRecommendationFromMap(c))
	}
	return prediction, crops
}

// CropRecommendationFromMap normalizes one crop object from the model.
func CropRecommendationFromMap(c map[string]interface{}) models.CropRecommendation {
	return models.CropRecommendation{
		CropName:                   TextValue(c["crop_name"]),
		CropCategory:               TextValue(c["crop_category"]),
		SuitabilityScore:           ExtractNumber(c["suitability_score"]),
		SuitabilityLevel:           TextValue(c["suitability_level"]),
		PlantingMethod:             TextValue(c["planting_method"]),
		SpacingRecommendation:      TextValue(c["spacing_recommendation"]),
		SeedVarietySuggestions:     TextValue(c["seed_variety_suggestions"]),
		ExpectedYieldPerHectare:    ExtractNumber(c["expected_yield_per_hectare"]),
		FertilizerSchedule:         JSONValue(c["fertilizer_schedule"]),
		WateringSchedule:           TextValue(c["watering_schedule"]),
		PestControlMeasures:        JSONValue(c["pest_control_measures"]),
		HarvestingIndicators:       TextValue(c["harvesting_indicators"]),
		EstimatedCostPerHectare:    ExtractNumber(c["estimated_cost_per_hectare"]),
		EstimatedRevenuePerHectare: ExtractNumber(c["estimated_revenue_per_hectare"]),
		MarketDemandLevel:          TextValue(c["market_demand_level"]),
		BestPlantingDate:           ParseISODate(c["best_planting_date"]),
		ExpectedHarvestDate:        ParseISODate(c["expected_harvest_date"]),
		PlantingWindowStart:        ParseISODate(c["planting_window_start"]),
		PlantingWindowEnd:          ParseISODate(c["planting_window_end"]),
	}
}

func withFallback(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func regionOf(coords *Coordinates, bundle *types.WeatherBundle) string {
	if coords.Detected != nil && coords.Detected.Region != "Unknown" {
		return coords.Detected.Region
	}
	if bundle.Location.State != "Unknown" {
		return bundle.Location.State
	}
	return ""
}

func cityOf(coords *Coordinates, bundle *types.WeatherBundle) string {
	if coords.Detected != nil && coords.Detected.City != "Unknown" {
		return coords.Detected.City
	}
	if bundle.Location.City != "Unknown" {
		return bundle.Location.City
	}
	return ""
}
