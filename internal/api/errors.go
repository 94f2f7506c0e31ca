package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/agrisoil/backend/internal/middleware"
	"github.com/pageza/agrisoil/backend/internal/service"
)

var sentinels = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrTokenRevoked, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
}

// respondError maps a service error onto a status code and an {"error": ...}
// body. Unknown errors are 500s.
func respondError(c *gin.Context, err error) {
	var locErr *service.LocationError
	if errors.As(err, &locErr) {
		respondLocationError(c, locErr)
		return
	}

	if errors.Is(err, service.ErrUnsupportedSoilType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "Unsupported soil type: " + trimSentinel(err, service.ErrUnsupportedSoilType),
			"allowed_soil_types": service.SoilTypes,
		})
		return
	}

	var upErr *service.UpstreamError
	if errors.As(err, &upErr) {
		msg := err.Error()
		if upErr.Provider == service.ProviderOpenWeather {
			msg = "Weather data error: " + msg
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
		return
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			c.JSON(s.status, gin.H{"error": trimSentinel(err, s.err)})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func respondLocationError(c *gin.Context, locErr *service.LocationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Cannot detect location automatically",
		"details": gin.H{
			"detected_ip":       locErr.IP,
			"ip_location_error": locErr.Message,
			"suggestion":        locErr.Suggestion,
		},
		"usage": gin.H{
			"manual_coordinates": `POST with: {"lat": your_latitude, "lon": your_longitude}`,
			"example": gin.H{
				"lat":         -6.2088,
				"lon":         106.8456,
				"description": "Jakarta, Indonesia coordinates",
			},
		},
	})
}

// trimSentinel drops the "<sentinel>: " prefix added by fmt.Errorf wrapping.
func trimSentinel(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != msg {
		return trimmed
	}
	return msg
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}
