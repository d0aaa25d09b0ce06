package config

import (
	"fmt"
	"strconv"
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

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()

	var errs []string

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, ValidationError{Field: "server_port", Message: "must be a valid TCP port"}.Error())
	}
	if cfg.DBHost == "" || cfg.DBName == "" {
		errs = append(errs, ValidationError{Field: "db_host", Message: "database host and name are required"}.Error())
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, ValidationError{Field: "rate_limit_window", Message: "must be positive"}.Error())
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, ValidationError{Field: "log_format", Message: "must be json or console"}.Error())
	}

	// Production and CI must not fall back to unsigned or passwordless setups.
	if env == Production || env == CI {
		if cfg.DBPassword == "" {
			errs = append(errs, "db_password is required")
		}
		if cfg.JWTSecret == "" {
			errs = append(errs, "jwt_secret is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
