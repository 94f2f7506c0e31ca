package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WeatherData is the weather snapshot fetched for one submission.
type WeatherData struct {
	ID                 uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:varchar(36);index" json:"user_id"`
	Latitude           float64        `json:"latitude"`
	Longitude          float64        `json:"longitude"`
	LocationName       string         `gorm:"type:text" json:"location_name"`
	CurrentTemperature *float64       `json:"current_temperature"`
	CurrentHumidity    *float64       `json:"current_humidity"`
	CurrentRainfall    *float64       `json:"current_rainfall"`
	CurrentWindSpeed   *float64       `json:"current_wind_speed"`
	CurrentPressure    *float64       `json:"current_pressure"`
	Forecast7Days      datatypes.JSON `gorm:"column:forecast_7days" json:"forecast_7days"`
	Season             string         `gorm:"size:50" json:"season"`
	WeatherWarnings    string         `gorm:"type:text" json:"weather_warnings"`
	DataSource         string         `gorm:"size:50" json:"data_source"`
	FetchedAt          time.Time      `json:"fetched_at"`
	ExpiresAt          *time.Time     `json:"expires_at"`
}

func (WeatherData) TableName() string {
	return "weather_data"
}

func (w *WeatherData) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// CropPrediction is the parsed recommendation bundle for one submission.
type CropPrediction struct {
	ID                  uuid.UUID       `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID              uuid.UUID       `gorm:"type:varchar(36);index" json:"user_id"`
	SoilAnalysisID      uuid.UUID       `gorm:"type:varchar(36);index;not null" json:"soil_analysis_id"`
	WeatherDataID       uuid.UUID       `gorm:"type:varchar(36);index;not null" json:"weather_data_id"`
	RecommendedCrops    datatypes.JSON  `json:"recommended_crops"`
	SeasonalAdvice      string          `gorm:"type:text" json:"seasonal_advice"`
	WeatherWarnings     string          `gorm:"type:text" json:"weather_warnings"`
	SoilTreatments      datatypes.JSON  `json:"soil_treatments"`
	RiskFactors         datatypes.JSON  `json:"risk_factors"`
	SuccessProbability  *int            `json:"success_probability"`
	BestPlantingDate    *datatypes.Date `json:"best_planting_date"`
	ExpectedHarvestDate *datatypes.Date `json:"expected_harvest_date"`
	PlantingWindowStart *datatypes.Date `json:"planting_window_start"`
	PlantingWindowEnd   *datatypes.Date `json:"planting_window_end"`
	RawResponse         string          `gorm:"type:text" json:"raw_response"`
	CreatedAt           time.Time       `json:"created_at"`

	Recommendations []CropRecommendation `gorm:"foreignKey:CropPredictionID" json:"recommendations,omitempty"`
}

func (p *CropPrediction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CropRecommendation is one crop line item of a CropPrediction.
type CropRecommendation struct {
	ID                         uuid.UUID       `gorm:"type:varchar(36);primarykey" json:"id"`
	CropPredictionID           uuid.UUID       `gorm:"type:varchar(36);index;not null" json:"crop_prediction_id"`
	CropName                   string          `gorm:"type:text" json:"crop_name"`
	CropCategory               string          `gorm:"type:text" json:"crop_category"`
	SuitabilityScore           *float64        `json:"suitability_score"`
	SuitabilityLevel           string          `gorm:"type:text" json:"suitability_level"`
	PlantingMethod             string          `gorm:"type:text" json:"planting_method"`
	SpacingRecommendation      string          `gorm:"type:text" json:"spacing_recommendation"`
	SeedVarietySuggestions     string          `gorm:"type:text" json:"seed_variety_suggestions"`
	ExpectedYieldPerHectare    *float64        `json:"expected_yield_per_hectare"`
	FertilizerSchedule         datatypes.JSON  `json:"fertilizer_schedule"`
	WateringSchedule           string          `gorm:"type:text" json:"watering_schedule"`
	PestControlMeasures        datatypes.JSON  `json:"pest_control_measures"`
	HarvestingIndicators       string          `gorm:"type:text" json:"harvesting_indicators"`
	EstimatedCostPerHectare    *float64        `json:"estimated_cost_per_hectare"`
	EstimatedRevenuePerHectare *float64        `json:"estimated_revenue_per_hectare"`
	MarketDemandLevel          string          `gorm:"type:text" json:"market_demand_level"`
	BestPlantingDate           *datatypes.Date `json:"best_planting_date"`
	ExpectedHarvestDate        *datatypes.Date `json:"expected_harvest_date"`
	PlantingWindowStart        *datatypes.Date `json:"planting_window_start"`
	PlantingWindowEnd          *datatypes.Date `json:"planting_window_end"`
	CreatedAt                  time.Time       `json:"created_at"`
}

func (r *CropRecommendation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RevokedToken{},
		&SoilTypeReference{},
		&SoilAnalysis{},
		&SoilPhoto{},
		&WeatherData{},
		&CropPrediction{},
		&CropRecommendation{},
	}
}
