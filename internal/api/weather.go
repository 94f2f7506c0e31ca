package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/agrisoil/backend/internal/service"
)

// WeatherHandler exposes current conditions and IP geolocation
type WeatherHandler struct {
	weather service.WeatherProvider
	locator service.LocationResolver
	now     func() time.Time
}

func NewWeatherHandler(weather service.WeatherProvider, locator service.LocationResolver) *WeatherHandler {
	return &WeatherHandler{weather: weather, locator: locator, now: time.Now}
}

func (h *WeatherHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/weather/current", h.Current)
	router.GET("/location/detect", h.DetectLocation)
}

func (h *WeatherHandler) Current(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return
	}

	bundle, err := h.weather.GetWeather(c.Request.Context(), lat, lon)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now().In(service.TimezoneLocation(bundle))
	c.JSON(http.StatusOK, gin.H{
		"location":        bundle.Location,
		"current_weather": bundle.Current,
		"daily_forecast":  bundle.Daily,
		"alerts":          bundle.Alerts,
		"timezone":        bundle.Timezone,
		"season":          service.InferSeason(now.Month()),
		"current_date":    now.Format("2006-01-02"),
	})
}

func (h *WeatherHandler) DetectLocation(c *gin.Context) {
	ip := service.ClientIP(c.Request)
	lookupIP := ip
	if !service.IsGeolocatableIP(lookupIP) {
		lookupIP = ""
	}

	loc, err := h.locator.Resolve(c.Request.Context(), lookupIP)
	if err != nil {
		var locErr *service.LocationError
		if !errors.As(err, &locErr) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"detected_ip": ip,
			"location": gin.H{
				"success":             false,
				"error":               locErr.Message,
				"fallback_suggestion": locErr.Suggestion,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"detected_ip": ip,
		"location": gin.H{
			"success": true,
			"lat":     loc.Lat,
			"lon":     loc.Lon,
			"city":    loc.City,
			"country": loc.Country,
			"region":  loc.Region,
		},
	})
}
