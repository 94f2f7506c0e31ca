package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstream            = errors.New("upstream provider failure")
	ErrUnsupportedSoilType = errors.New("unsupported soil type")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrNotConfigured       = errors.New("not configured")
)

// LocationError is returned when no geolocation provider could place an IP.
type LocationError struct {
	IP         string
	Message    string
	Suggestion string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("%s (ip %s)", e.Message, e.IP)
}

// Upstream provider names reported in UpstreamError.
const (
	ProviderClaude      = "claude"
	ProviderOpenWeather = "openweather"
)

// UpstreamError carries the failing provider's message verbatim.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

func upstream(provider string, err error) error {
	return &UpstreamError{Provider: provider, Err: err}
}

// isUniqueViolation reports whether err came from a unique index, whichever
// driver raised it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
