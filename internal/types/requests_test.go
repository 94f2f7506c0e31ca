package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLat *float64
		wantErr bool
	}{
		{name: "number", body: `{"lat":-6.2}`, wantLat: floatPtr(-6.2)},
		{name: "numeric string", body: `{"lat":"-6.2"}`, wantLat: floatPtr(-6.2)},
		{name: "padded string", body: `{"lat":" 106.8 "}`, wantLat: floatPtr(106.8)},
		{name: "null", body: `{"lat":null}`},
		{name: "absent", body: `{}`},
		{name: "word", body: `{"lat":"north"}`, wantErr: true},
		{name: "empty string", body: `{"lat":""}`, wantErr: true},
		{name: "not a number", body: `{"lat":"NaN"}`, wantErr: true},
		{name: "boolean", body: `{"lat":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CropRecommendRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLat, req.Lat.Float64())
		})
	}
}

func TestSoilSubmitRequestAcceptsStringCoordinates(t *testing.T) {
	var req SoilSubmitRequest
	require.NoError(t, json.Unmarshal([]byte(`{"lat":"-6.2","lon":106.8,"soil_color":"Dark Brown"}`), &req))

	assert.Equal(t, -6.2, *req.Lat.Float64())
	assert.Equal(t, 106.8, *req.Lon.Float64())
	assert.Equal(t, "Dark Brown", req.SoilColor)
}

func TestCoordinateUnmarshalParam(t *testing.T) {
	var c Coordinate
	require.NoError(t, c.UnmarshalParam("112.63"))
	assert.Equal(t, Coordinate(112.63), c)

	assert.Error(t, c.UnmarshalParam("east"))
	assert.Equal(t, Coordinate(112.63), c, "failed parse leaves the value unchanged")
}

func floatPtr(f float64) *float64 {
	return &f
}
