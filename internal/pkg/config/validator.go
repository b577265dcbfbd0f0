package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"
)

// ValidateDuration validates that a duration is within [min, max].
//
// Example:
//
//	// Sampling interval between 1s and 1h
//	err := ValidateDuration(interval, time.Second, time.Hour)
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer value is within [min, max].
//
// Use cases:
//   - Port number validation (e.g., 1-65535 for the metrics listener)
//   - Port number validation avoiding privileged ports (e.g., 1024-65535)
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidateIPAddress validates a listen host given as an IP literal
// ("0.0.0.0", "127.0.0.1", "::").
// Hostnames are rejected so the bind address never depends on DNS.
func ValidateIPAddress(host string) error {
	if host == "" {
		return fmt.Errorf("invalid IP address: cannot be empty")
	}

	if net.ParseIP(host) == nil {
		return fmt.Errorf("invalid IP address '%s'", host)
	}

	return nil
}

// ValidateOneOf returns a validator accepting only the listed values
// (case-insensitive).
//
// Example:
//
//	result := LoadEnvWithFallback("LOG_FORMAT", "console", ValidateOneOf("console", "text", "json"))
func ValidateOneOf(allowed ...string) func(string) error {
	return func(value string) error {
		if slices.Contains(allowed, strings.ToLower(value)) {
			return nil
		}
		return fmt.Errorf("value '%s' is not one of [%s]", value, strings.Join(allowed, ", "))
	}
}
