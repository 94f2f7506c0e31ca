package types

// Location is a resolved coordinate with human-readable place names.
type Location struct {
	Name    string  `json:"name,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Region  string  `json:"region,omitempty"`
	State   string  `json:"state,omitempty"`
}

// CurrentWeather holds the normalized "current" block of a forecast.
type CurrentWeather struct {
	Temperature   float64  `json:"temperature"`
	FeelsLike     float64  `json:"feels_like"`
	Humidity      float64  `json:"humidity"`
	Pressure      float64  `json:"pressure"`
	UVIndex       float64  `json:"uv_index"`
	Visibility    float64  `json:"visibility"`
	WindSpeed     float64  `json:"wind_speed"`
	WindDirection float64  `json:"wind_direction"`
	Weather       string   `json:"weather"`
	WeatherMain   string   `json:"weather_main"`
	Clouds        float64  `json:"clouds"`
	Sunrise       int64    `json:"sunrise"`
	Sunset        int64    `json:"sunset"`
	Rain1h        *float64 `json:"rain_1h,omitempty"`
	Snow1h        *float64 `json:"snow_1h,omitempty"`
}

type DailyTemperature struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Morning float64 `json:"morning"`
	Day     float64 `json:"day"`
	Evening float64 `json:"evening"`
	Night   float64 `json:"night"`
}

type DailyForecast struct {
	Date        int64            `json:"date"`
	Temperature DailyTemperature `json:"temperature"`
	Humidity    float64          `json:"humidity"`
	Pressure    float64          `json:"pressure"`
	WindSpeed   float64          `json:"wind_speed"`
	Weather     string           `json:"weather"`
	WeatherMain string           `json:"weather_main"`
	Clouds      float64          `json:"clouds"`
	UVIndex     float64          `json:"uv_index"`
	Pop         float64          `json:"pop"`
	Rain        float64          `json:"rain"`
	Snow        float64          `json:"snow"`
}

type HourlyForecast struct {
	Datetime      int64    `json:"datetime"`
	Temperature   float64  `json:"temperature"`
	FeelsLike     float64  `json:"feels_like"`
	Humidity      float64  `json:"humidity"`
	Pressure      float64  `json:"pressure"`
	WindSpeed     float64  `json:"wind_speed"`
	WindDirection float64  `json:"wind_direction"`
	Weather       string   `json:"weather"`
	WeatherMain   string   `json:"weather_main"`
	Clouds        float64  `json:"clouds"`
	Pop           float64  `json:"pop"`
	Rain1h        *float64 `json:"rain_1h,omitempty"`
	Snow1h        *float64 `json:"snow_1h,omitempty"`
}

type WeatherAlert struct {
	Sender      string   `json:"sender"`
	Event       string   `json:"event"`
	Description string   `json:"description"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Tags        []string `json:"tags"`
}

// WeatherBundle is the full normalized weather picture for one coordinate.
type WeatherBundle struct {
	Location       Location         `json:"location"`
	Current        CurrentWeather   `json:"current"`
	Daily          []DailyForecast  `json:"daily_forecast"`
	Hourly         []HourlyForecast `json:"hourly_forecast"`
	Alerts         []WeatherAlert   `json:"alerts"`
	Timezone       string           `json:"timezone"`
	TimezoneOffset int              `json:"timezone_offset"`
}

// Usage is the token accounting returned by the generative model.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
