package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/testhelpers"
)

const verboseRecommendation = `{
  "recommendations": [
    {
      "crop_name": "Rice (IR64, Ciherang or Inpari 32, transplanted after the first heavy rains of the wet season)",
      "crop_category": "Cereal grain grown in flooded paddies with irrigation from nearby rivers",
      "suitability_level": "Very high, provided drainage channels are cleared before planting",
      "market_demand_level": "High, driven by strong domestic demand in Java and export markets"
    }
  ],
  "seasonal_advice": "Plant at the start of the rains"
}`

func TestSubmitStoresLongTextOnPostgres(t *testing.T) {
	f := newSubmissionFixtureOn(t, testhelpers.SetupPostgresDB(t))
	f.expectUpstream(-6.2, 106.8, verboseRecommendation)

	req := andosolRequest()
	req.SoilColor = "Dark brown with reddish streaks near the surface and grey mottling below"
	req.City = strings.Repeat("Kabupaten Bandung Barat ", 6)

	result, err := f.svc.Submit(context.Background(), f.user.ID, req, "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, result.CropRecommendationIDs, 1)

	var crop models.CropRecommendation
	require.NoError(t, f.db.First(&crop, "id = ?", result.CropRecommendationIDs[0]).Error)
	assert.Equal(t, "High, driven by strong domestic demand in Java and export markets", crop.MarketDemandLevel)
	assert.Greater(t, len(crop.CropName), 100)

	var analysis models.SoilAnalysis
	require.NoError(t, f.db.First(&analysis, "id = ?", result.SoilAnalysis.ID).Error)
	assert.Equal(t, req.SoilColor, analysis.SoilColor)
	assert.Equal(t, req.City, analysis.City)

	assert.EqualValues(t, 1, countRows(t, f.db, &models.CropPrediction{}))
}
