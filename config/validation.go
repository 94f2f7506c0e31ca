package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var supportedDrivers = map[string]bool{
	"postgres": true,
	"sqlite":   true,
}

// ValidateConfig rejects malformed values. Missing provider API keys are not
// an error here; the call that needs the key fails instead.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if !supportedDrivers[cfg.DBDriver] {
		errors = append(errors, ValidationError{Field: "DB_DRIVER", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)}.Error())
	}

	if cfg.JWTSecret == "" {
		errors = append(errors, ValidationError{Field: "JWT_SECRET", Message: "jwt_secret secret is required"}.Error())
	}

	if cfg.AccessTokenTTL <= 0 {
		errors = append(errors, ValidationError{Field: "ACCESS_TOKEN_TTL", Message: "must be positive"}.Error())
	}
	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		errors = append(errors, ValidationError{Field: "REFRESH_TOKEN_TTL", Message: "must not be shorter than ACCESS_TOKEN_TTL"}.Error())
	}

	if cfg.LLMTimeout <= 0 {
		errors = append(errors, ValidationError{Field: "LLM_TIMEOUT_SECONDS", Message: "must be positive"}.Error())
	}

	if cfg.S3BucketName != "" && cfg.AWSRegion == "" {
		errors = append(errors, ValidationError{Field: "AWS_REGION", Message: "required when S3_BUCKET_NAME is set"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
