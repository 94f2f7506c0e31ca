package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/mocks"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/testhelpers"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const fullRecommendation = `{
  "recommendations": [
    {
      "crop_name": "Rice",
      "crop_category": "Cereal",
      "suitability_score": 92,
      "suitability_level": "High",
      "expected_yield_per_hectare": "5.5 t/ha",
      "fertilizer_schedule": [{"week": 2, "type": "Urea"}],
      "pest_control_measures": ["brown planthopper"],
      "estimated_cost_per_hectare": "Rp 12.500.000",
      "estimated_revenue_per_hectare": "Rp 30.000.000/ha",
      "best_planting_date": "2025-02-01",
      "expected_harvest_date": "not sure"
    },
    {"crop_name": "Sweet Potato", "suitability_score": "78"}
  ],
  "seasonal_advice": "Plant at the start of the rains",
  "weather_warnings": ["Heavy rain expected"],
  "soil_treatments": ["lime"],
  "risk_factors": ["flooding"],
  "success_probability": "85%",
  "best_planting_date": "2025-02-01",
  "planting_window_start": "2025-01-20",
  "planting_window_end": "2025-02-15"
}`

type submissionFixture struct {
	db      *gorm.DB
	user    *models.User
	llm     *mocks.MockLLMClient
	weather *mocks.MockWeatherProvider
	locator *mocks.MockLocationResolver
	svc     *service.SubmissionService
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	return newSubmissionFixtureOn(t, testhelpers.SetupTestDB(t))
}

func newSubmissionFixtureOn(t *testing.T, db *gorm.DB) *submissionFixture {
	f := &submissionFixture{
		db:      db,
		user:    testhelpers.CreateUser(t, db, "farmer@example.com"),
		llm:     new(mocks.MockLLMClient),
		weather: new(mocks.MockWeatherProvider),
		locator: new(mocks.MockLocationResolver),
	}
	log := logger.NewNop()
	f.svc = service.NewSubmissionService(db, f.locator, f.weather, service.NewRecommendationEngine(f.llm, log), log)
	return f
}

func (f *submissionFixture) expectUpstream(lat, lon float64, answer string) {
	f.weather.On("GetWeather", mock.Anything, lat, lon).Return(jakartaBundle(), nil)
	f.weather.On("HistoricalSummary", mock.Anything, lat, lon, 3, mock.Anything).Return("2024: light rain")
	f.llm.On("Complete", mock.Anything, mock.Anything).Return(&service.Completion{
		Text: answer, Usage: types.Usage{InputTokens: 1000, OutputTokens: 700},
	}, nil)
}

func andosolRequest() types.SoilSubmitRequest {
	return types.SoilSubmitRequest{
		SoilCharacteristics: types.SoilCharacteristics{
			SoilType:         "andosol soil",
			SoilColor:        "Dark Brown",
			SoilTexture:      "Loamy",
			SoilDrainage:     "Well-drained",
			SoilLocationType: "Slope",
			SoilFertility:    "High",
			SoilMoisture:     "Moist",
		},
		Lat: types.NewCoordinate(-6.2),
		Lon: types.NewCoordinate(106.8),
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestValidateSoilFields(t *testing.T) {
	req := andosolRequest()
	soil, err := service.ValidateSoilFields(req.SoilCharacteristics)
	require.NoError(t, err)
	assert.Equal(t, "Andosol Soil", soil.SoilType)

	missing := req.SoilCharacteristics
	missing.SoilDrainage = " "
	_, err = service.ValidateSoilFields(missing)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "missing required field: soil_drainage")

	unknown := req.SoilCharacteristics
	unknown.SoilType = "Clay"
	_, err = service.ValidateSoilFields(unknown)
	assert.ErrorIs(t, err, service.ErrUnsupportedSoilType)
}

func TestSubmitStoresEverything(t *testing.T) {
	f := newSubmissionFixture(t)
	_, err := service.NewSoilReferenceService(f.db, logger.NewNop()).Seed(context.Background())
	require.NoError(t, err)
	photo := testhelpers.CreateSoilPhoto(t, f.db, f.user)
	f.expectUpstream(-6.2, 106.8, fullRecommendation)

	req := andosolRequest()
	req.SoilPhotoID = photo.ID.String()
	result, err := f.svc.Submit(context.Background(), f.user.ID, req, "10.0.0.1")
	require.NoError(t, err)

	analysis := result.SoilAnalysis
	assert.Equal(t, "Andosol Soil", analysis.ClassifiedSoilType)
	assert.Equal(t, models.CoordinateSourceManual, analysis.CoordinateSource)
	assert.Equal(t, "llm_vision", analysis.ClassificationMethod)
	assert.Equal(t, 1, analysis.LLMAPICalls)
	assert.Equal(t, "Jakarta", analysis.City)
	assert.Equal(t, "Jakarta", analysis.Province)
	assert.Equal(t, "10.0.0.1", analysis.IPAddress)
	require.NotNil(t, analysis.SoilTypeReferenceID)

	var ref models.SoilTypeReference
	require.NoError(t, f.db.First(&ref, "id = ?", *analysis.SoilTypeReferenceID).Error)
	assert.Equal(t, "Andosol Soil", ref.SoilTypeName)

	var linked models.SoilPhoto
	require.NoError(t, f.db.First(&linked, "id = ?", photo.ID).Error)
	require.NotNil(t, linked.SoilAnalysisID)
	assert.Equal(t, analysis.ID, *linked.SoilAnalysisID)

	weather := result.WeatherData
	assert.Equal(t, "openweathermap", weather.DataSource)
	season := service.InferSeason(weather.FetchedAt.In(service.TimezoneLocation(jakartaBundle())).Month())
	assert.Equal(t, season, weather.Season)
	require.NotNil(t, weather.CurrentRainfall)
	assert.Equal(t, 0.0, *weather.CurrentRainfall)
	require.NotNil(t, weather.ExpiresAt)
	assert.WithinDuration(t, weather.FetchedAt.Add(time.Hour), *weather.ExpiresAt, time.Second)

	prediction := result.CropPrediction
	assert.Equal(t, analysis.ID, prediction.SoilAnalysisID)
	assert.Equal(t, weather.ID, prediction.WeatherDataID)
	assert.Equal(t, "Plant at the start of the rains", prediction.SeasonalAdvice)
	assert.Equal(t, "Heavy rain expected", prediction.WeatherWarnings)
	require.NotNil(t, prediction.SuccessProbability)
	assert.Equal(t, 85, *prediction.SuccessProbability)
	require.NotNil(t, prediction.PlantingWindowEnd)
	assert.Equal(t, "2025-02-15", time.Time(*prediction.PlantingWindowEnd).Format("2006-01-02"))
	assert.Nil(t, prediction.ExpectedHarvestDate)
	assert.Equal(t, fullRecommendation, prediction.RawResponse)

	require.Len(t, result.CropRecommendationIDs, 2)
	var crops []models.CropRecommendation
	require.NoError(t, f.db.Where("crop_prediction_id = ?", prediction.ID).Order("crop_name").Find(&crops).Error)
	require.Len(t, crops, 2)
	rice := crops[0]
	assert.Equal(t, "Rice", rice.CropName)
	require.NotNil(t, rice.ExpectedYieldPerHectare)
	assert.Equal(t, 5.5, *rice.ExpectedYieldPerHectare)
	require.NotNil(t, rice.EstimatedCostPerHectare)
	assert.Equal(t, 12500000.0, *rice.EstimatedCostPerHectare)
	require.NotNil(t, rice.EstimatedRevenuePerHectare)
	assert.Equal(t, 30000000.0, *rice.EstimatedRevenuePerHectare)
	assert.Nil(t, rice.ExpectedHarvestDate)
	require.NotNil(t, rice.BestPlantingDate)

	var pests []string
	require.NoError(t, json.Unmarshal(rice.PestControlMeasures, &pests))
	assert.Equal(t, []string{"brown planthopper"}, pests)

	require.NotNil(t, crops[1].SuitabilityScore)
	assert.Equal(t, 78.0, *crops[1].SuitabilityScore)

	assert.Equal(t, int64(1), countRows(t, f.db, &models.SoilAnalysis{}))
	assert.Equal(t, int64(1), countRows(t, f.db, &models.WeatherData{}))
	assert.Equal(t, int64(1), countRows(t, f.db, &models.CropPrediction{}))
}

func TestSubmitUnparsedResponseStillStored(t *testing.T) {
	f := newSubmissionFixture(t)
	f.expectUpstream(-6.2, 106.8, "Rice would do well here.")

	result, err := f.svc.Submit(context.Background(), f.user.ID, andosolRequest(), "")
	require.NoError(t, err)

	assert.Nil(t, result.SoilAnalysis.SoilTypeReferenceID)
	assert.Empty(t, result.CropRecommendationIDs)
	assert.Equal(t, "Rice would do well here.", result.CropPrediction.RawResponse)
	assert.Equal(t, service.KindUnparsed, result.Recommendation.Parsed.Kind)
	assert.Equal(t, int64(1), countRows(t, f.db, &models.CropPrediction{}))
}

func TestSubmitBareArray(t *testing.T) {
	f := newSubmissionFixture(t)
	f.expectUpstream(-6.2, 106.8, `[{"crop_name":"Corn"},{"crop_name":"Peanut"}]`)

	result, err := f.svc.Submit(context.Background(), f.user.ID, andosolRequest(), "")
	require.NoError(t, err)
	assert.Len(t, result.CropRecommendationIDs, 2)
	assert.Empty(t, result.CropPrediction.SeasonalAdvice)
}

func TestSubmitDetectsLocation(t *testing.T) {
	f := newSubmissionFixture(t)
	f.locator.On("Resolve", mock.Anything, "36.84.1.1").Return(&types.Location{
		Lat: -7.98, Lon: 112.63, City: "Malang", Region: "East Java", Country: "Indonesia",
	}, nil)
	f.expectUpstream(-7.98, 112.63, `{"recommendations":[]}`)

	req := andosolRequest()
	req.Lat, req.Lon = nil, nil
	result, err := f.svc.Submit(context.Background(), f.user.ID, req, "36.84.1.1")
	require.NoError(t, err)

	assert.Equal(t, models.CoordinateSourceIPDetection, result.SoilAnalysis.CoordinateSource)
	assert.Equal(t, -7.98, result.SoilAnalysis.Latitude)
	assert.Equal(t, "Malang", result.SoilAnalysis.City)
	assert.Equal(t, "East Java", result.SoilAnalysis.Province)
}

func TestSubmitRejectsForeignPhoto(t *testing.T) {
	f := newSubmissionFixture(t)
	other := testhelpers.CreateUser(t, f.db, "other@example.com")
	photo := testhelpers.CreateSoilPhoto(t, f.db, other)

	req := andosolRequest()
	req.SoilPhotoID = photo.ID.String()
	_, err := f.svc.Submit(context.Background(), f.user.ID, req, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	req.SoilPhotoID = "not-a-uuid"
	_, err = f.svc.Submit(context.Background(), f.user.ID, req, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	f.weather.AssertNotCalled(t, "GetWeather", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitUnsupportedSoilTypeMakesNoCalls(t *testing.T) {
	f := newSubmissionFixture(t)
	req := andosolRequest()
	req.SoilType = "Volcanic Ash"

	_, err := f.svc.Submit(context.Background(), f.user.ID, req, "")
	assert.ErrorIs(t, err, service.ErrUnsupportedSoilType)
	f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	assert.Zero(t, countRows(t, f.db, &models.SoilAnalysis{}))
}

func TestSubmitModelFailureWritesNothing(t *testing.T) {
	f := newSubmissionFixture(t)
	f.weather.On("GetWeather", mock.Anything, -6.2, 106.8).Return(jakartaBundle(), nil)
	f.weather.On("HistoricalSummary", mock.Anything, -6.2, 106.8, 3, mock.Anything).Return("")
	f.llm.On("Complete", mock.Anything, mock.Anything).Return(nil, &service.UpstreamError{
		Provider: service.ProviderClaude, Err: assert.AnError,
	})

	_, err := f.svc.Submit(context.Background(), f.user.ID, andosolRequest(), "")
	assert.ErrorIs(t, err, service.ErrUpstream)
	assert.Zero(t, countRows(t, f.db, &models.SoilAnalysis{}))
	assert.Zero(t, countRows(t, f.db, &models.WeatherData{}))
}

func TestSubmitRollsBackOnWriteFailure(t *testing.T) {
	f := newSubmissionFixture(t)
	photo := testhelpers.CreateSoilPhoto(t, f.db, f.user)
	f.expectUpstream(-6.2, 106.8, fullRecommendation)
	require.NoError(t, f.db.Migrator().DropTable(&models.CropRecommendation{}))

	req := andosolRequest()
	req.SoilPhotoID = photo.ID.String()
	_, err := f.svc.Submit(context.Background(), f.user.ID, req, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save crop recommendation")

	assert.Zero(t, countRows(t, f.db, &models.SoilAnalysis{}))
	assert.Zero(t, countRows(t, f.db, &models.WeatherData{}))
	assert.Zero(t, countRows(t, f.db, &models.CropPrediction{}))

	var unlinked models.SoilPhoto
	require.NoError(t, f.db.First(&unlinked, "id = ?", photo.ID).Error)
	assert.Nil(t, unlinked.SoilAnalysisID)
}
