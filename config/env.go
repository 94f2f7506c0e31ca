package config

import (
	"os"
	"strings"
)

// Environment is the deployment the process runs in. It selects the log
// mode, gin's release mode and whether the seed commands may run.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads ENV, with CI=true taking precedence. Unknown values
// fall back to development.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch env := Environment(strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))); env {
	case Production, Test, Development:
		return env
	case "prod":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether ENV selects production.
func IsProduction() bool {
	return GetEnvironment() == Production
}
