package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/mocks"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const recommendationJSON = `{"recommendations":[{"crop_name":"Rice","suitability_score":92}],"seasonal_advice":"Plant now"}`

type advisoryFixture struct {
	llm     *mocks.MockLLMClient
	weather *mocks.MockWeatherProvider
	locator *mocks.MockLocationResolver
	svc     *service.AdvisoryService
}

func newAdvisoryFixture() *advisoryFixture {
	f := &advisoryFixture{
		llm:     new(mocks.MockLLMClient),
		weather: new(mocks.MockWeatherProvider),
		locator: new(mocks.MockLocationResolver),
	}
	log := logger.NewNop()
	f.svc = service.NewAdvisoryService(
		f.locator,
		f.weather,
		service.NewRecommendationEngine(f.llm, log),
		service.NewSoilClassifier(f.llm, log),
		log,
	)
	return f
}

func jakartaBundle() *types.WeatherBundle {
	return &types.WeatherBundle{
		Location: types.Location{Name: "Jakarta", Lat: -6.2, Lon: 106.8, City: "Jakarta", Country: "ID", State: "Jakarta"},
		Current:  types.CurrentWeather{Temperature: 29, Humidity: 80},
		Daily: []types.DailyForecast{
			{Date: 1736899200, Rain: 5}, {Date: 1736985600}, {Date: 1737072000}, {Date: 1737158400},
		},
		Timezone: "Asia/Jakarta",
	}
}

func isRecommendation(req service.CompletionRequest) bool {
	return len(req.Image) == 0
}

func isClassification(req service.CompletionRequest) bool {
	return len(req.Image) > 0
}

func floatPtr(f float64) *float64 {
	return &f
}

func TestAdvisoryRecommendManualCoordinates(t *testing.T) {
	f := newAdvisoryFixture()
	f.weather.On("GetWeather", mock.Anything, -6.2, 106.8).Return(jakartaBundle(), nil)
	f.weather.On("HistoricalSummary", mock.Anything, -6.2, 106.8, 3, mock.Anything).Return("2024: rain")
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(req service.CompletionRequest) bool {
		return req.MaxTokens == 1500 && req.Prompt != ""
	})).Return(&service.Completion{Text: recommendationJSON, Usage: types.Usage{InputTokens: 900, OutputTokens: 400}}, nil)

	advice, err := f.svc.Recommend(context.Background(), service.AdviceRequest{
		Lat: floatPtr(-6.2), Lon: floatPtr(106.8), SoilText: "clay loam", ClientIP: "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CoordinateSourceManual, advice.Coordinates.Source)
	assert.Equal(t, service.KindObject, advice.Result.Parsed.Kind)
	assert.Len(t, advice.Result.ForecastSummary, 3)
	assert.Equal(t, "clay loam", advice.SoilText)
	assert.Nil(t, advice.Soil)
	f.locator.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	f.weather.AssertExpectations(t)
	f.llm.AssertExpectations(t)
}

func TestAdvisoryRecommendDetectsLocation(t *testing.T) {
	f := newAdvisoryFixture()
	f.locator.On("Resolve", mock.Anything, "36.84.1.1").Return(&types.Location{Lat: -7.25, Lon: 112.75, City: "Surabaya"}, nil)
	f.weather.On("GetWeather", mock.Anything, -7.25, 112.75).Return(jakartaBundle(), nil)
	f.weather.On("HistoricalSummary", mock.Anything, -7.25, 112.75, 3, mock.Anything).Return("")
	f.llm.On("Complete", mock.Anything, mock.Anything).Return(&service.Completion{Text: "not json"}, nil)

	advice, err := f.svc.Recommend(context.Background(), service.AdviceRequest{Lat: floatPtr(1), ClientIP: "36.84.1.1"})
	require.NoError(t, err)

	assert.Equal(t, models.CoordinateSourceIPDetection, advice.Coordinates.Source)
	assert.Equal(t, -7.25, advice.Coordinates.Lat)
	require.NotNil(t, advice.Coordinates.Detected)
	assert.Equal(t, "Surabaya", advice.Coordinates.Detected.City)
	assert.Equal(t, service.KindUnparsed, advice.Result.Parsed.Kind)
}

func TestAdvisoryRecommendPrivateIPIsNotSent(t *testing.T) {
	f := newAdvisoryFixture()
	f.locator.On("Resolve", mock.Anything, "").Return(nil, &service.LocationError{
		Message: "Unable to determine location from IP", Suggestion: "Please provide coordinates manually",
	})

	_, err := f.svc.Recommend(context.Background(), service.AdviceRequest{ClientIP: "192.168.1.20"})

	var locErr *service.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, "192.168.1.20", locErr.IP)
	f.weather.AssertNotCalled(t, "GetWeather", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvisoryRecommendWeatherFailure(t *testing.T) {
	f := newAdvisoryFixture()
	f.weather.On("GetWeather", mock.Anything, 1.0, 2.0).Return(nil, &service.UpstreamError{
		Provider: service.ProviderOpenWeather, Err: assert.AnError,
	})

	_, err := f.svc.Recommend(context.Background(), service.AdviceRequest{Lat: floatPtr(1), Lon: floatPtr(2)})
	assert.ErrorIs(t, err, service.ErrUpstream)
	f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAdvisoryRecommendWithSoil(t *testing.T) {
	f := newAdvisoryFixture()
	classification := "SOIL_TYPE: latosol soil\nSOIL_COLOR: Reddish\nSOIL_TEXTURE: Clayey"
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&service.Completion{Text: classification, Usage: types.Usage{InputTokens: 1500, OutputTokens: 90}}, nil)
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(isRecommendation)).Return(&service.Completion{Text: recommendationJSON, Usage: types.Usage{InputTokens: 800, OutputTokens: 300}}, nil)
	f.weather.On("GetWeather", mock.Anything, -6.2, 106.8).Return(jakartaBundle(), nil)
	f.weather.On("HistoricalSummary", mock.Anything, -6.2, 106.8, 3, mock.Anything).Return("")

	advice, err := f.svc.RecommendWithSoil(context.Background(), "soil.png", []byte("png"), service.AdviceRequest{
		Lat: floatPtr(-6.2), Lon: floatPtr(106.8),
	})
	require.NoError(t, err)

	require.NotNil(t, advice.Soil)
	assert.Equal(t, "Latosol Soil", advice.Soil.SoilType)
	assert.Equal(t, classification, advice.SoilText)
	assert.Equal(t, classification, advice.Result.SoilAnalysis)
	require.NotNil(t, advice.SoilUsage)
	assert.Equal(t, 1500, advice.SoilUsage.InputTokens)
	assert.Equal(t, 800, advice.Result.Usage.InputTokens)
}

func TestAdvisoryRecommendWithSoilErrors(t *testing.T) {
	f := newAdvisoryFixture()
	_, err := f.svc.RecommendWithSoil(context.Background(), "soil.bmp", []byte("bmp"), service.AdviceRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	f.llm.On("Complete", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&service.Completion{Text: "SOIL_TYPE: Moon Dust"}, nil).Once()
	_, err = f.svc.RecommendWithSoil(context.Background(), "soil.jpg", []byte("jpg"), service.AdviceRequest{})
	assert.ErrorIs(t, err, service.ErrUnsupportedSoilType)

	f.llm.On("Complete", mock.Anything, mock.MatchedBy(isClassification)).
		Return(nil, &service.UpstreamError{Provider: service.ProviderClaude, Err: assert.AnError}).Once()
	_, err = f.svc.RecommendWithSoil(context.Background(), "soil.jpg", []byte("jpg"), service.AdviceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUpstream)
	assert.Contains(t, err.Error(), "soil analysis failed")
	f.weather.AssertNotCalled(t, "GetWeather", mock.Anything, mock.Anything, mock.Anything)
}
