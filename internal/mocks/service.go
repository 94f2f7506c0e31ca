package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/agrisoil/backend/internal/service"
	"github.com/pageza/agrisoil/backend/internal/types"
)

// MockLLMClient is a mock implementation of service.LLMClient
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Complete(ctx context.Context, req service.CompletionRequest) (*service.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Completion), args.Error(1)
}

// MockWeatherProvider is a mock implementation of service.WeatherProvider
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) GetWeather(ctx context.Context, lat, lon float64) (*types.WeatherBundle, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WeatherBundle), args.Error(1)
}

func (m *MockWeatherProvider) HistoricalSummary(ctx context.Context, lat, lon float64, years int, loc *time.Location) string {
	args := m.Called(ctx, lat, lon, years, loc)
	return args.String(0)
}

// MockLocationResolver is a mock implementation of service.LocationResolver
type MockLocationResolver struct {
	mock.Mock
}

func (m *MockLocationResolver) Resolve(ctx context.Context, ip string) (*types.Location, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Location), args.Error(1)
}

// MockPhotoStore is a mock implementation of service.PhotoStore
type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockPhotoStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
