package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// Columns filled from user input or model output must not carry a length
// limit: Postgres rejects over-long values and would abort a submission.
func TestFreeTextColumnsAreUnbounded(t *testing.T) {
	columns := map[interface{}][]string{
		&User{}:               {"full_name", "phone_number", "province", "city"},
		&SoilTypeReference{}:  {"local_name", "description"},
		&SoilPhoto{}:          {"photo_filename"},
		&WeatherData{}:        {"location_name", "weather_warnings"},
		&CropPrediction{}:     {"seasonal_advice", "weather_warnings", "raw_response"},
		&CropRecommendation{}: {"crop_name", "crop_category", "suitability_level", "market_demand_level", "planting_method"},
		&SoilAnalysis{}: {
			"soil_color", "soil_texture", "soil_drainage", "soil_location_type",
			"soil_fertility", "soil_moisture", "classification_method", "province", "city",
		},
	}

	cache := &sync.Map{}
	for model, names := range columns {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)
		for _, name := range names {
			field := s.LookUpField(name)
			require.NotNil(t, field, "%s.%s", s.Table, name)
			assert.Equal(t, schema.DataType("text"), field.DataType, "%s.%s", s.Table, name)
			assert.Zero(t, field.Size, "%s.%s", s.Table, name)
		}
	}
}
