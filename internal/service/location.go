package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const (
	locationFailureMessage    = "Unable to determine location from IP"
	locationFailureSuggestion = "Please provide coordinates manually"
)

// errNoLocation marks a provider that answered but had no usable location.
// It does not count against the provider's circuit breaker, which only trips
// on transport errors and 5xx responses.
var errNoLocation = errors.New("provider returned no location")

// errLookupAbandoned marks a request cut short by the caller's context.
var errLookupAbandoned = errors.New("lookup abandoned")

// clientIPHeaders are checked in order for the caller's public address.
var clientIPHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
	"CF-Connecting-IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_REAL_IP",
}

// LocationConfig holds the geolocation provider endpoints.
type LocationConfig struct {
	IPAPIURL     string
	IPAPICoURL   string
	FreeGeoIPURL string
	Timeout      time.Duration
}

// DefaultLocationConfig returns the public provider endpoints.
func DefaultLocationConfig() LocationConfig {
	return LocationConfig{
		IPAPIURL:     "http://ip-api.com/json",
		IPAPICoURL:   "https://ipapi.co/json/",
		FreeGeoIPURL: "https://freegeoip.app/json/",
		Timeout:      5 * time.Second,
	}
}

// LocationResolver turns an IP address into coordinates.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (*types.Location, error)
}

type geoProvider struct {
	name    string
	request func(ip string) (string, map[string]string)
	parse   func(body []byte) (*types.Location, error)
	breaker *gobreaker.CircuitBreaker
}

// LocationService queries IP geolocation providers in a fixed order.
type LocationService struct {
	client    *resty.Client
	providers []geoProvider
	log       *logger.Logger
}

// NewLocationService creates a resolver over ip-api.com, ipapi.co and
// freegeoip.app, tried in that order.
func NewLocationService(cfg LocationConfig, log *logger.Logger) *LocationService {
	client := resty.New().SetTimeout(cfg.Timeout)

	ipAPI := strings.TrimRight(cfg.IPAPIURL, "/")
	providers := []geoProvider{
		{
			name: "ip-api.com",
			request: func(ip string) (string, map[string]string) {
				if ip == "" {
					return ipAPI, nil
				}
				return ipAPI + "/" + ip, nil
			},
			parse: parseIPAPI,
		},
		{
			name:    "ipapi.co",
			request: queryParamRequest(cfg.IPAPICoURL),
			parse:   latLongParser("country_name", "region"),
		},
		{
			name:    "freegeoip.app",
			request: queryParamRequest(cfg.FreeGeoIPURL),
			parse:   latLongParser("country_name", "region_name"),
		},
	}
	for i := range providers {
		providers[i].breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        providers[i].name,
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: providerHealthy,
		})
	}

	return &LocationService{
		client:    client,
		providers: providers,
		log:       log.With("service", "location"),
	}
}

func queryParamRequest(url string) func(ip string) (string, map[string]string) {
	return func(ip string) (string, map[string]string) {
		if ip == "" {
			return url, nil
		}
		return url, map[string]string{"ip": ip}
	}
}

// Resolve returns the first provider's location for ip. An empty ip lets the
// provider use the caller's address.
func (s *LocationService) Resolve(ctx context.Context, ip string) (*types.Location, error) {
	for _, p := range s.providers {
		loc, err := s.query(ctx, p, ip)
		if err != nil {
			s.log.Warn("IP geolocation provider failed", "provider", p.name, "ip", ip, "error", err)
			continue
		}
		return loc, nil
	}

	return nil, &LocationError{
		IP:         ip,
		Message:    locationFailureMessage,
		Suggestion: locationFailureSuggestion,
	}
}

func (s *LocationService) query(ctx context.Context, p geoProvider, ip string) (*types.Location, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		url, params := p.request(ip)
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", errLookupAbandoned, ctxErr)
			}
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: status %d", errNoLocation, resp.StatusCode())
		}
		return p.parse(resp.Body())
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Location), nil
}

// providerHealthy reports whether err leaves the provider's breaker untouched.
func providerHealthy(err error) bool {
	return err == nil || errors.Is(err, errNoLocation) || errors.Is(err, errLookupAbandoned)
}

func parseIPAPI(body []byte) (*types.Location, error) {
	var data struct {
		Status     string   `json:"status"`
		Message    string   `json:"message"`
		Lat        *float64 `json:"lat"`
		Lon        *float64 `json:"lon"`
		City       string   `json:"city"`
		Country    string   `json:"country"`
		RegionName string   `json:"regionName"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", errNoLocation, err)
	}
	if data.Status != "success" || data.Lat == nil || data.Lon == nil {
		return nil, fmt.Errorf("%w: lookup unsuccessful: %s", errNoLocation, data.Message)
	}
	return &types.Location{
		Lat:     *data.Lat,
		Lon:     *data.Lon,
		City:    orUnknown(data.City),
		Country: orUnknown(data.Country),
		Region:  orUnknown(data.RegionName),
	}, nil
}

// latLongParser handles the ipapi.co / freegeoip.app shape, which only differ
// in the key names used for country and region.
func latLongParser(countryKey, regionKey string) func(body []byte) (*types.Location, error) {
	return func(body []byte) (*types.Location, error) {
		var data map[string]interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", errNoLocation, err)
		}
		lat, okLat := data["latitude"].(float64)
		lon, okLon := data["longitude"].(float64)
		if !okLat || !okLon {
			return nil, fmt.Errorf("%w: response missing latitude/longitude", errNoLocation)
		}
		str := func(key string) string {
			v, _ := data[key].(string)
			return orUnknown(v)
		}
		return &types.Location{
			Lat:     lat,
			Lon:     lon,
			City:    str("city"),
			Country: str(countryKey),
			Region:  str(regionKey),
		}, nil
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// ClientIP extracts the caller's public IP from proxy headers, falling back to
// the connection's remote address.
func ClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if i := strings.Index(value, ","); i >= 0 {
			value = value[:i]
		}
		value = strings.TrimSpace(value)
		if IsGeolocatableIP(value) {
			return value
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsGeolocatableIP reports whether ip is a well-formed dotted quad outside the
// loopback and private ranges.
func IsGeolocatableIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	octets := make([]int, 4)
	for i, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 || strings.HasPrefix(part, "+") || strings.HasPrefix(part, "-") {
			return false
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 127, octets[0] == 10:
		return false
	case octets[0] == 192 && octets[1] == 168:
		return false
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return false
	}
	return true
}
