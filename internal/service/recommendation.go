package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	recommendationMaxTokens = 2000
	historicalYears         = 3
)

// InferSeason labels a month with the Indonesian farming season:
// November through April is the rainy season.
func InferSeason(month time.Month) string {
	switch month {
	case time.November, time.December, time.January, time.February, time.March, time.April:
		return "Rainy Season"
	default:
		return "Dry Season"
	}
}

// SummarizeHourly reports the temperature range, peak wind and up to three
// heavy-rain hours (>1 mm/h) over the next 48 hours.
func SummarizeHourly(hourly []types.HourlyForecast, loc *time.Location) string {
	if len(hourly) == 0 {
		return "No hourly forecast available."
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(hourly) > maxHourlyEntries {
		hourly = hourly[:maxHourlyEntries]
	}

	low, high, wind := math.Inf(1), math.Inf(-1), math.Inf(-1)
	var rainEvents []string
	for _, h := range hourly {
		if h.Rain1h != nil && *h.Rain1h > 1 {
			at := time.Unix(h.Datetime, 0).In(loc).Format("2006-01-02 15:04")
			rainEvents = append(rainEvents, fmt.Sprintf("%s: Heavy rain (%smm/h)", at, strconv.FormatFloat(*h.Rain1h, 'f', -1, 64)))
		}
		low = math.Min(low, h.Temperature)
		high = math.Max(high, h.Temperature)
		wind = math.Max(wind, h.WindSpeed)
	}

	summary := fmt.Sprintf("Next 48h: Temp %.1f°C to %.1f°C, max wind %.1f m/s.", low, high, wind)
	if len(rainEvents) > 0 {
		if len(rainEvents) > 3 {
			rainEvents = rainEvents[:3]
		}
		summary += "\nRain events: " + strings.Join(rainEvents, "; ")
	}
	return summary
}

// BuildRecommendationPrompt assembles the single prompt sent to the model.
func BuildRecommendationPrompt(bundle *types.WeatherBundle, soilText, historical string, now time.Time) string {
	loc := TimezoneLocation(bundle)

	var b strings.Builder
	b.WriteString("Given the following data for a location in Indonesia, return ONLY a single JSON object with these keys: ")
	b.WriteString("'recommendations' (array of objects, each with: crop_name, crop_category, suitability_score, suitability_level, ")
	b.WriteString("planting_method, spacing_recommendation, seed_variety_suggestions, expected_yield_per_hectare, fertilizer_schedule, ")
	b.WriteString("watering_schedule, pest_control_measures, harvesting_indicators, estimated_cost_per_hectare, estimated_revenue_per_hectare, ")
	b.WriteString("market_demand_level, best_planting_date, expected_harvest_date, planting_window_start, planting_window_end), ")
	b.WriteString("'seasonal_advice', 'weather_warnings', 'soil_treatments', 'risk_factors', 'success_probability', ")
	b.WriteString("'best_planting_date', 'expected_harvest_date', 'planting_window_start', 'planting_window_end'. ")
	b.WriteString("All dates must be in ISO 8601 format (YYYY-MM-DD). Do NOT include any explanation, markdown, or text outside the JSON object.\n")

	fmt.Fprintf(&b, "Location: %s, %s\n", bundle.Location.Name, bundle.Location.Country)
	fmt.Fprintf(&b, "Coordinates: %s, %s\n",
		strconv.FormatFloat(bundle.Location.Lat, 'f', -1, 64),
		strconv.FormatFloat(bundle.Location.Lon, 'f', -1, 64))
	fmt.Fprintf(&b, "Timezone: %s\n", bundle.Timezone)
	fmt.Fprintf(&b, "Season: %s\n", InferSeason(now.In(loc).Month()))

	current, _ := json.Marshal(bundle.Current)
	fmt.Fprintf(&b, "Current Weather: %s\n", current)

	if len(bundle.Daily) > 0 {
		b.WriteString("\n7-Day Weather Forecast:\n")
		for i, day := range bundle.Daily {
			if i >= maxDailyEntries {
				break
			}
			fmt.Fprintf(&b, "Day %d (%s): %.1f°C - %.1f°C, %s, Rain prob: %.0f%%\n",
				i+1,
				time.Unix(day.Date, 0).In(loc).Format("2006-01-02"),
				day.Temperature.Min, day.Temperature.Max, day.Weather, day.Pop)
		}
	}

	if len(bundle.Hourly) > 0 {
		b.WriteString("\nNext 48h Hourly Highlights:\n")
		b.WriteString(SummarizeHourly(bundle.Hourly, loc))
		b.WriteString("\n")
	}

	if len(bundle.Alerts) > 0 {
		b.WriteString("\nWeather Alerts:\n")
		for _, alert := range bundle.Alerts {
			desc := alert.Description
			if r := []rune(desc); len(r) > 100 {
				desc = string(r[:100])
			}
			fmt.Fprintf(&b, "- %s: %s...\n", alert.Event, desc)
		}
	}

	if historical != "" {
		fmt.Fprintf(&b, "\nHistorical Weather (same week, past %d years):\n%s\n", historicalYears, historical)
	}

	fmt.Fprintf(&b, "\nSoil Analysis: %s", soilText)
	return b.String()
}

// ParseKind tags which shape the model's recommendation output had.
type ParseKind int

const (
	KindUnparsed ParseKind = iota
	KindObject
	KindArray
)

func (k ParseKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unparsed"
	}
}

// ParsedRecommendations is the tolerant parse of the model output.
type ParsedRecommendations struct {
	Kind   ParseKind
	Object map[string]interface{}
	Crops  []map[string]interface{}
	Raw    string
}

// Field looks up a top-level key, then the same key inside a nested
// "recommendations" object.
func (p ParsedRecommendations) Field(name string) interface{} {
	if p.Object == nil {
		return nil
	}
	if v, ok := p.Object[name]; ok && v != nil {
		return v
	}
	if nested, ok := p.Object["recommendations"].(map[string]interface{}); ok {
		return nested[name]
	}
	return nil
}

// Bundle is the JSON-friendly form returned to clients.
func (p ParsedRecommendations) Bundle() map[string]interface{} {
	switch p.Kind {
	case KindObject:
		return p.Object
	case KindArray:
		crops := make([]interface{}, len(p.Crops))
		for i, c := range p.Crops {
			crops[i] = c
		}
		return map[string]interface{}{"recommendations": crops}
	default:
		return nil
	}
}

// ParseRecommendations never fails: it tries a JSON object, then a JSON
// array, and otherwise returns KindUnparsed with the raw text.
func ParseRecommendations(text string) ParsedRecommendations {
	result := ParsedRecommendations{Kind: KindUnparsed, Raw: text, Crops: []map[string]interface{}{}}

	for _, candidate := range jsonCandidates(text) {
		var v interface{}
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			continue
		}
		switch t := v.(type) {
		case map[string]interface{}:
			result.Kind = KindObject
			result.Object = t
			result.Crops = cropsFromObject(t)
			return result
		case []interface{}:
			result.Kind = KindArray
			result.Crops = cropMaps(t)
			return result
		}
	}
	return result
}

// jsonCandidates yields the text itself, the body of a fenced code block, and
// the outermost {...} and [...] spans, in that order.
func jsonCandidates(text string) []string {
	text = strings.TrimSpace(text)
	candidates := []string{text}

	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.Index(body, "\n"); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		candidates = append(candidates, strings.TrimSpace(body))
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	return candidates
}

func cropsFromObject(obj map[string]interface{}) []map[string]interface{} {
	switch recs := obj["recommendations"].(type) {
	case []interface{}:
		return cropMaps(recs)
	case map[string]interface{}:
		if nested, ok := recs["recommendations"].([]interface{}); ok {
			return cropMaps(nested)
		}
	}
	return []map[string]interface{}{}
}

func cropMaps(items []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// RecommendationResult is one model call's output plus the weather context
// it was based on.
type RecommendationResult struct {
	Raw             string
	Usage           types.Usage
	Location        types.Location
	WeatherSummary  types.CurrentWeather
	ForecastSummary []types.DailyForecast
	Alerts          []types.WeatherAlert
	SoilAnalysis    string
	Parsed          ParsedRecommendations
}

// RecommendOptions overrides the model defaults for one call.
type RecommendOptions struct {
	Model     string
	MaxTokens int
}

// RecommendationEngine turns weather and soil context into crop advice.
type RecommendationEngine struct {
	llm LLMClient
	now func() time.Time
	log *logger.Logger
}

func NewRecommendationEngine(llm LLMClient, log *logger.Logger) *RecommendationEngine {
	return &RecommendationEngine{llm: llm, now: time.Now, log: log.With("service", "recommendation")}
}

// Recommend makes one model call and parses the result.
func (e *RecommendationEngine) Recommend(ctx context.Context, bundle *types.WeatherBundle, soilText, historical string, opts RecommendOptions) (*RecommendationResult, error) {
	if bundle == nil {
		return nil, upstream(ProviderOpenWeather, fmt.Errorf("weather data unavailable"))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = recommendationMaxTokens
	}

	completion, err := e.llm.Complete(ctx, CompletionRequest{
		Model:     opts.Model,
		MaxTokens: maxTokens,
		Prompt:    BuildRecommendationPrompt(bundle, soilText, historical, e.now()),
	})
	if err != nil {
		e.log.Error("Recommendation request failed", "error", err)
		return nil, err
	}

	parsed := ParseRecommendations(completion.Text)
	if parsed.Kind == KindUnparsed {
		e.log.Warn("Model recommendation output was not JSON", "length", len(completion.Text))
	}

	forecast := bundle.Daily
	if len(forecast) > 3 {
		forecast = forecast[:3]
	}

	return &RecommendationResult{
		Raw:             completion.Text,
		Usage:           completion.Usage,
		Location:        bundle.Location,
		WeatherSummary:  bundle.Current,
		ForecastSummary: forecast,
		Alerts:          bundle.Alerts,
		SoilAnalysis:    soilText,
		Parsed:          parsed,
	}, nil
}
