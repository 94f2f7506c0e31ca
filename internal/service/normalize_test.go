package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"rupiah per hectare", "Rp 1.200.000/ha", ptr(1200000)},
		{"decimal yield", "2.5 t/ha", ptr(2.5)},
		{"comma thousands", "12,500 kg", ptr(12500)},
		{"single dot thousands", "1.200", ptr(1200)},
		{"european decimal", "1.234,5", ptr(1234.5)},
		{"plain float", 3.75, ptr(3.75)},
		{"int", 90, ptr(90)},
		{"no digits", "unknown", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNumber(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestIntValue(t *testing.T) {
	got := IntValue("90-120 days")
	require.NotNil(t, got)
	assert.Equal(t, 90, *got)

	got = IntValue(2.6)
	require.NotNil(t, got)
	assert.Equal(t, 3, *got)

	assert.Nil(t, IntValue("soon"))
}

func TestParseISODate(t *testing.T) {
	d := ParseISODate("2025-01-15")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Time(*d))

	d = ParseISODate("2025-03-01T08:00:00Z")
	require.NotNil(t, d)
	assert.Equal(t, time.March, time.Time(*d).Month())

	assert.Nil(t, ParseISODate("early March"))
	assert.Nil(t, ParseISODate(""))
	assert.Nil(t, ParseISODate(20250115))
}

func TestTextValue(t *testing.T) {
	assert.Equal(t, "", TextValue(nil))
	assert.Equal(t, "Urea", TextValue("Urea"))
	assert.Equal(t, "Urea, NPK", TextValue([]interface{}{"Urea", "NPK"}))
	assert.Equal(t, "2.5", TextValue(2.5))
	assert.Equal(t, `{"n":1}`, TextValue(map[string]interface{}{"n": 1}))
}

func TestJSONValue(t *testing.T) {
	assert.Nil(t, JSONValue(nil))
	assert.JSONEq(t, `["aphids","blast"]`, string(JSONValue([]interface{}{"aphids", "blast"})))
}

func ptr(f float64) *float64 {
	return &f
}
