package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	reverseGeoEndpoint  = "/geo/1.0/reverse"
	oneCallEndpoint     = "/data/3.0/onecall"
	timeMachineEndpoint = "/data/3.0/onecall/timemachine"

	geocodeTimeout = 5 * time.Second
	weatherTimeout = 10 * time.Second

	maxDailyEntries  = 7
	maxHourlyEntries = 48
)

// WeatherProvider produces normalized weather for a coordinate.
type WeatherProvider interface {
	GetWeather(ctx context.Context, lat, lon float64) (*types.WeatherBundle, error)
	HistoricalSummary(ctx context.Context, lat, lon float64, years int, loc *time.Location) string
}

// WeatherService is an OpenWeather One Call 3.0 client
type WeatherService struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
	log    *logger.Logger
}

// NewWeatherService creates a new OpenWeather client.
func NewWeatherService(apiKey, baseURL string, log *logger.Logger) *WeatherService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")

	return &WeatherService{
		client: client,
		apiKey: apiKey,
		now:    time.Now,
		log:    log.With("service", "weather"),
	}
}

type owWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owPrecip struct {
	OneHour *float64 `json:"1h"`
}

type owCurrent struct {
	Dt         int64       `json:"dt"`
	Sunrise    int64       `json:"sunrise"`
	Sunset     int64       `json:"sunset"`
	Temp       float64     `json:"temp"`
	FeelsLike  float64     `json:"feels_like"`
	Pressure   float64     `json:"pressure"`
	Humidity   float64     `json:"humidity"`
	Uvi        float64     `json:"uvi"`
	Clouds     float64     `json:"clouds"`
	Visibility float64     `json:"visibility"`
	WindSpeed  float64     `json:"wind_speed"`
	WindDeg    float64     `json:"wind_deg"`
	Weather    []owWeather `json:"weather"`
	Rain       *owPrecip   `json:"rain"`
	Snow       *owPrecip   `json:"snow"`
}

type owDaily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Morn  float64 `json:"morn"`
		Day   float64 `json:"day"`
		Eve   float64 `json:"eve"`
		Night float64 `json:"night"`
	} `json:"temp"`
	Humidity  float64     `json:"humidity"`
	Pressure  float64     `json:"pressure"`
	WindSpeed float64     `json:"wind_speed"`
	Clouds    float64     `json:"clouds"`
	Uvi       float64     `json:"uvi"`
	Pop       float64     `json:"pop"`
	Rain      float64     `json:"rain"`
	Snow      float64     `json:"snow"`
	Weather   []owWeather `json:"weather"`
}

type owHourly struct {
	Dt        int64       `json:"dt"`
	Temp      float64     `json:"temp"`
	FeelsLike float64     `json:"feels_like"`
	Humidity  float64     `json:"humidity"`
	Pressure  float64     `json:"pressure"`
	WindSpeed float64     `json:"wind_speed"`
	WindDeg   float64     `json:"wind_deg"`
	Clouds    float64     `json:"clouds"`
	Pop       float64     `json:"pop"`
	Weather   []owWeather `json:"weather"`
	Rain      *owPrecip   `json:"rain"`
	Snow      *owPrecip   `json:"snow"`
}

type owAlert struct {
	SenderName  string   `json:"sender_name"`
	Event       string   `json:"event"`
	Description string   `json:"description"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Tags        []string `json:"tags"`
}

type oneCallResponse struct {
	Timezone       string     `json:"timezone"`
	TimezoneOffset int        `json:"timezone_offset"`
	Current        *owCurrent `json:"current"`
	Daily          []owDaily  `json:"daily"`
	Hourly         []owHourly `json:"hourly"`
	Alerts         []owAlert  `json:"alerts"`
}

type reverseGeoEntry struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type timeMachineResponse struct {
	Data []struct {
		Temp    float64     `json:"temp"`
		Weather []owWeather `json:"weather"`
		Rain    *owPrecip   `json:"rain"`
	} `json:"data"`
}

func (s *WeatherService) requireKey() error {
	if s.apiKey == "" {
		return upstream(ProviderOpenWeather, fmt.Errorf("OPENWEATHER_API_KEY %w", ErrNotConfigured))
	}
	return nil
}

func coordParams(lat, lon float64) map[string]string {
	return map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	}
}

// GetWeather fetches current conditions, a 7-day and 48-hour forecast and any
// active alerts. Reverse geocoding failures only degrade the place name.
func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64) (*types.WeatherBundle, error) {
	if err := s.requireKey(); err != nil {
		return nil, err
	}

	location := s.reverseGeocode(ctx, lat, lon)

	callCtx, cancel := context.WithTimeout(ctx, weatherTimeout)
	defer cancel()

	var data oneCallResponse
	resp, err := s.client.R().
		SetContext(callCtx).
		SetQueryParams(coordParams(lat, lon)).
		SetQueryParam("appid", s.apiKey).
		SetQueryParam("units", "metric").
		SetQueryParam("exclude", "minutely").
		SetResult(&data).
		Get(oneCallEndpoint)
	if err != nil {
		s.log.Error("Weather request failed", "lat", lat, "lon", lon, "error", err)
		return nil, upstream(ProviderOpenWeather, fmt.Errorf("weather request failed: %w", err))
	}
	if !resp.IsSuccess() {
		apiErr := parseOpenWeatherError(resp)
		s.log.Error("Weather provider returned error", "status", resp.StatusCode(), "error", apiErr)
		return nil, upstream(ProviderOpenWeather, apiErr)
	}
	if data.Current == nil {
		return nil, upstream(ProviderOpenWeather, errors.New("weather response missing current conditions"))
	}

	bundle := &types.WeatherBundle{
		Location:       location,
		Current:        normalizeCurrent(data.Current),
		Daily:          normalizeDaily(data.Daily),
		Hourly:         normalizeHourly(data.Hourly),
		Alerts:         normalizeAlerts(data.Alerts),
		Timezone:       data.Timezone,
		TimezoneOffset: data.TimezoneOffset,
	}
	if bundle.Timezone == "" {
		bundle.Timezone = "UTC"
	}
	return bundle, nil
}

func (s *WeatherService) reverseGeocode(ctx context.Context, lat, lon float64) types.Location {
	fallback := types.Location{
		Name:    fmt.Sprintf("Location (%s, %s)", strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64)),
		Lat:     lat,
		Lon:     lon,
		City:    "Unknown",
		Country: "Unknown",
		State:   "Unknown",
	}

	callCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	var entries []reverseGeoEntry
	resp, err := s.client.R().
		SetContext(callCtx).
		SetQueryParams(coordParams(lat, lon)).
		SetQueryParam("limit", "1").
		SetQueryParam("appid", s.apiKey).
		SetResult(&entries).
		Get(reverseGeoEndpoint)
	if err != nil || !resp.IsSuccess() || len(entries) == 0 {
		s.log.Warn("Reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return fallback
	}

	entry := entries[0]
	var parts []string
	for _, p := range []string{entry.Name, entry.State, entry.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		fallback.Name = strings.Join(parts, ", ")
	}
	fallback.City = orUnknown(entry.Name)
	fallback.State = orUnknown(entry.State)
	fallback.Country = orUnknown(entry.Country)
	return fallback
}

// HistoricalSummary renders one line per prior year for the same calendar day,
// anchored at local noon. A failed year renders as "Data unavailable".
func (s *WeatherService) HistoricalSummary(ctx context.Context, lat, lon float64, years int, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	now := s.now().In(loc)

	lines := make([]string, 0, years)
	for y := 1; y <= years; y++ {
		anchor := sameDayYearsAgo(now, y)

		line, err := s.historicalLine(ctx, lat, lon, anchor)
		if err != nil {
			s.log.Warn("Historical weather unavailable", "year", anchor.Year(), "error", err)
			line = fmt.Sprintf("Data unavailable (%s)", err.Error())
		}
		lines = append(lines, fmt.Sprintf("%d: %s", anchor.Year(), line))
	}
	return strings.Join(lines, "\n")
}

// sameDayYearsAgo returns noon on t's calendar day, years earlier. Feb 29 maps
// to Feb 28 in non-leap years instead of rolling into March.
func sameDayYearsAgo(t time.Time, years int) time.Time {
	year, month, day := t.Year()-years, t.Month(), t.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 12, 0, 0, 0, t.Location())
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func (s *WeatherService) historicalLine(ctx context.Context, lat, lon float64, at time.Time) (string, error) {
	if err := s.requireKey(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, weatherTimeout)
	defer cancel()

	var data timeMachineResponse
	resp, err := s.client.R().
		SetContext(callCtx).
		SetQueryParams(coordParams(lat, lon)).
		SetQueryParam("dt", strconv.FormatInt(at.Unix(), 10)).
		SetQueryParam("appid", s.apiKey).
		SetQueryParam("units", "metric").
		SetResult(&data).
		Get(timeMachineEndpoint)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", parseOpenWeatherError(resp)
	}
	if len(data.Data) == 0 {
		return "", errors.New("no data returned")
	}

	point := data.Data[0]
	rain := 0.0
	if point.Rain != nil && point.Rain.OneHour != nil {
		rain = *point.Rain.OneHour
	}
	return fmt.Sprintf("%s, %s°C, rain: %smm",
		firstDescription(point.Weather),
		strconv.FormatFloat(point.Temp, 'f', -1, 64),
		strconv.FormatFloat(rain, 'f', -1, 64),
	), nil
}

// TimezoneLocation resolves the bundle's IANA timezone, falling back to its
// fixed UTC offset.
func TimezoneLocation(bundle *types.WeatherBundle) *time.Location {
	if bundle == nil {
		return time.UTC
	}
	if loc, err := time.LoadLocation(bundle.Timezone); err == nil && bundle.Timezone != "" {
		return loc
	}
	return time.FixedZone(bundle.Timezone, bundle.TimezoneOffset)
}

func parseOpenWeatherError(resp *resty.Response) error {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("OpenWeather API error (%d): %s", resp.StatusCode(), apiErr.Message)
	}
	return fmt.Errorf("OpenWeather API error (%d): %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}

func firstDescription(w []owWeather) string {
	if len(w) == 0 {
		return ""
	}
	return w[0].Description
}

func firstMain(w []owWeather) string {
	if len(w) == 0 {
		return ""
	}
	return w[0].Main
}

func oneHour(p *owPrecip) *float64 {
	if p == nil {
		return nil
	}
	if p.OneHour == nil {
		zero := 0.0
		return &zero
	}
	v := *p.OneHour
	return &v
}

func normalizeCurrent(c *owCurrent) types.CurrentWeather {
	return types.CurrentWeather{
		Temperature:   c.Temp,
		FeelsLike:     c.FeelsLike,
		Humidity:      c.Humidity,
		Pressure:      c.Pressure,
		UVIndex:       c.Uvi,
		Visibility:    c.Visibility / 1000,
		WindSpeed:     c.WindSpeed,
		WindDirection: c.WindDeg,
		Weather:       firstDescription(c.Weather),
		WeatherMain:   firstMain(c.Weather),
		Clouds:        c.Clouds,
		Sunrise:       c.Sunrise,
		Sunset:        c.Sunset,
		Rain1h:        oneHour(c.Rain),
		Snow1h:        oneHour(c.Snow),
	}
}

func normalizeDaily(days []owDaily) []types.DailyForecast {
	if len(days) > maxDailyEntries {
		days = days[:maxDailyEntries]
	}
	out := make([]types.DailyForecast, 0, len(days))
	for _, d := range days {
		out = append(out, types.DailyForecast{
			Date: d.Dt,
			Temperature: types.DailyTemperature{
				Min:     d.Temp.Min,
				Max:     d.Temp.Max,
				Morning: d.Temp.Morn,
				Day:     d.Temp.Day,
				Evening: d.Temp.Eve,
				Night:   d.Temp.Night,
			},
			Humidity:    d.Humidity,
			Pressure:    d.Pressure,
			WindSpeed:   d.WindSpeed,
			Weather:     firstDescription(d.Weather),
			WeatherMain: firstMain(d.Weather),
			Clouds:      d.Clouds,
			UVIndex:     d.Uvi,
			Pop:         d.Pop * 100,
			Rain:        d.Rain,
			Snow:        d.Snow,
		})
	}
	return out
}

func normalizeHourly(hours []owHourly) []types.HourlyForecast {
	if len(hours) > maxHourlyEntries {
		hours = hours[:maxHourlyEntries]
	}
	out := make([]types.HourlyForecast, 0, len(hours))
	for _, h := range hours {
		out = append(out, types.HourlyForecast{
			Datetime:      h.Dt,
			Temperature:   h.Temp,
			FeelsLike:     h.FeelsLike,
			Humidity:      h.Humidity,
			Pressure:      h.Pressure,
			WindSpeed:     h.WindSpeed,
			WindDirection: h.WindDeg,
			Weather:       firstDescription(h.Weather),
			WeatherMain:   firstMain(h.Weather),
			Clouds:        h.Clouds,
			Pop:           h.Pop * 100,
			Rain1h:        oneHour(h.Rain),
			Snow1h:        oneHour(h.Snow),
		})
	}
	return out
}

func normalizeAlerts(alerts []owAlert) []types.WeatherAlert {
	out := make([]types.WeatherAlert, 0, len(alerts))
	for _, a := range alerts {
		sender := a.SenderName
		if sender == "" {
			sender = "Unknown"
		}
		event := a.Event
		if event == "" {
			event = "Weather Alert"
		}
		tags := a.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, types.WeatherAlert{
			Sender:      sender,
			Event:       event,
			Description: a.Description,
			Start:       a.Start,
			End:         a.End,
			Tags:        tags,
		})
	}
	return out
}
