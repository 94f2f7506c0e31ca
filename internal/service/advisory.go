package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const adviceMaxTokens = 1500

// Coordinates is a resolved point and how it was obtained.
type Coordinates struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Source   string  `json:"source"`
	ClientIP string  `json:"-"`

	// Detected is set when the point came from IP geolocation.
	Detected *types.Location `json:"-"`
}

// resolveCoordinates uses lat/lon verbatim when both are given, otherwise
// geolocates clientIP. A private or malformed IP is not sent to the providers;
// they then fall back to the address the request reaches them from.
func resolveCoordinates(ctx context.Context, locator LocationResolver, lat, lon *float64, clientIP string) (*Coordinates, error) {
	if lat != nil && lon != nil {
		return &Coordinates{Lat: *lat, Lon: *lon, Source: models.CoordinateSourceManual, ClientIP: clientIP}, nil
	}

	ip := clientIP
	if !IsGeolocatableIP(ip) {
		ip = ""
	}
	loc, err := locator.Resolve(ctx, ip)
	if err != nil {
		var le *LocationError
		if errors.As(err, &le) && le.IP == "" {
			le.IP = clientIP
		}
		return nil, err
	}
	return &Coordinates{
		Lat:      loc.Lat,
		Lon:      loc.Lon,
		Source:   models.CoordinateSourceIPDetection,
		ClientIP: clientIP,
		Detected: loc,
	}, nil
}

// AdviceRequest is the input of a one-off recommendation.
type AdviceRequest struct {
	Lat       *float64
	Lon       *float64
	SoilText  string
	ClientIP  string
	Model     string
	MaxTokens int
}

// Advice is a recommendation that is returned to the caller but not stored.
type Advice struct {
	Coordinates *Coordinates
	Result      *RecommendationResult
	Soil        *types.SoilCharacteristics
	SoilText    string
	SoilUsage   *types.Usage
}

// AdvisoryService answers /crops/recommend style requests.
type AdvisoryService struct {
	locator    LocationResolver
	weather    WeatherProvider
	engine     *RecommendationEngine
	classifier *SoilClassifier
	log        *logger.Logger
}

func NewAdvisoryService(locator LocationResolver, weather WeatherProvider, engine *RecommendationEngine, classifier *SoilClassifier, log *logger.Logger) *AdvisoryService {
	return &AdvisoryService{
		locator:    locator,
		weather:    weather,
		engine:     engine,
		classifier: classifier,
		log:        log.With("service", "advisory"),
	}
}

// Recommend resolves coordinates, fetches weather and asks for crop advice.
func (s *AdvisoryService) Recommend(ctx context.Context, req AdviceRequest) (*Advice, error) {
	coords, err := resolveCoordinates(ctx, s.locator, req.Lat, req.Lon, req.ClientIP)
	if err != nil {
		return nil, err
	}

	bundle, err := s.weather.GetWeather(ctx, coords.Lat, coords.Lon)
	if err != nil {
		return nil, err
	}
	historical := s.weather.HistoricalSummary(ctx, coords.Lat, coords.Lon, historicalYears, TimezoneLocation(bundle))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = adviceMaxTokens
	}
	result, err := s.engine.Recommend(ctx, bundle, req.SoilText, historical, RecommendOptions{
		Model:     req.Model,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &Advice{Coordinates: coords, Result: result, SoilText: req.SoilText}, nil
}

// RecommendWithSoil classifies image first and feeds the classification
// into Recommend. Nothing is stored.
func (s *AdvisoryService) RecommendWithSoil(ctx context.Context, filename string, image []byte, req AdviceRequest) (*Advice, error) {
	if !AllowedImageExtension(filename) {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, filename)
	}

	completion, err := s.classifier.Classify(ctx, image, MediaTypeForFilename(filename), ClassifyOptions{Model: req.Model})
	if err != nil {
		return nil, fmt.Errorf("soil analysis failed: %w", err)
	}

	soil := ParseClassification(completion.Text)
	canonical, ok := NormalizeSoilType(soil.SoilType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSoilType, soil.SoilType)
	}
	soil.SoilType = canonical

	req.SoilText = completion.Text
	advice, err := s.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}
	advice.Soil = &soil
	advice.SoilUsage = &completion.Usage
	return advice, nil
}
