package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"delivery-metrics/internal/pkg/config"
)

// SamplerConfig holds the configuration for the sampler process.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// The defaults reproduce the fixed behavior of the sampler: one cycle per
// second, normal pending range, metrics on 0.0.0.0:8000.
type SamplerConfig struct {
	// Interval is the delay between two sampling cycles.
	// Range: 1s-1h
	// Default: 1s
	Interval time.Duration

	// HighPendingMode draws pending counts from the high-pending range.
	// A profile file that sets high_pending_mode overrides this value.
	// Default: false
	HighPendingMode bool

	// MetricsHost is the IP address the metrics endpoint binds to.
	// Default: "0.0.0.0"
	MetricsHost string

	// MetricsPort is the TCP port of the metrics endpoint.
	// Range: 1-65535
	// Default: 8000
	MetricsPort int

	// HealthEnabled starts the health check server.
	// Default: false
	HealthEnabled bool

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 8001
	HealthPort int

	// ProfilePath is an optional YAML profile file. Empty disables the
	// profile file and hot reload.
	// Default: ""
	ProfilePath string
}

// DefaultConfig returns a SamplerConfig with default values.
func DefaultConfig() SamplerConfig {
	return SamplerConfig{
		Interval:        time.Second,
		HighPendingMode: false,
		MetricsHost:     "0.0.0.0",
		MetricsPort:     8000,
		HealthEnabled:   false,
		HealthPort:      8001,
		ProfilePath:     "",
	}
}

// MetricsAddr returns the listen address of the metrics endpoint.
func (c *SamplerConfig) MetricsAddr() string {
	return net.JoinHostPort(c.MetricsHost, strconv.Itoa(c.MetricsPort))
}

// HealthAddr returns the listen address of the health server.
// It shares the metrics host.
func (c *SamplerConfig) HealthAddr() string {
	return net.JoinHostPort(c.MetricsHost, strconv.Itoa(c.HealthPort))
}

// Validate checks if the configuration values are valid.
// If multiple fields are invalid, all errors are returned together.
//
// Validation rules:
//   - Interval: between 1s and 1h
//   - MetricsHost: IP literal
//   - MetricsPort: between 1 and 65535
//   - HealthPort: between 1024 and 65535, different from MetricsPort when enabled
//   - ProfilePath: empty or an existing regular file
func (c *SamplerConfig) Validate() error {
	var errs []error

	if err := validateInterval(c.Interval); err != nil {
		errs = append(errs, fmt.Errorf("interval: %w", err))
	}

	if err := config.ValidateIPAddress(c.MetricsHost); err != nil {
		errs = append(errs, fmt.Errorf("metrics host: %w", err))
	}

	if err := validateMetricsPort(c.MetricsPort); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if err := validateHealthPort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	} else if c.HealthEnabled && c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port: %d is already used by the metrics endpoint", c.HealthPort))
	}

	if err := validateProfilePath(c.ProfilePath); err != nil {
		errs = append(errs, fmt.Errorf("profile path: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func validateInterval(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, time.Hour)
}

func validateMetricsPort(v int) error {
	return config.ValidateIntRange(v, 1, 65535)
}

func validateHealthPort(v int) error {
	return config.ValidateIntRange(v, 1024, 65535)
}

func validateProfilePath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

// LoadConfigFromEnv loads sampler configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from its environment variable
//  3. Validate each loaded value
//  4. If validation fails: use the default value, log a warning, record metrics
//  5. Never return an error
//
// Environment variables:
//   - SAMPLER_INTERVAL: Duration string, 1s-1h (default: "1s")
//   - SAMPLER_HIGH_PENDING: Boolean (default: false)
//   - METRICS_HOST: IP literal (default: "0.0.0.0")
//   - METRICS_PORT: Integer 1-65535 (default: 8000)
//   - SAMPLER_HEALTH_ENABLED: Boolean (default: false)
//   - SAMPLER_HEALTH_PORT: Integer 1024-65535 (default: 8001)
//   - SAMPLER_PROFILE: Path to an existing YAML file (default: "")
//
// Metrics updated:
//   - sampler_config_validation_errors_total{field}
//   - sampler_config_fallbacks_total{field}
//   - sampler_config_fallback_active
//   - sampler_config_load_timestamp
func LoadConfigFromEnv(logger *slog.Logger, metrics *SamplerMetrics) (*SamplerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	report := func(field, label string, applied bool, warnings []string) {
		if !applied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", label),
				slog.String("warning", warning))
		}
	}

	interval := config.LoadEnvDuration("SAMPLER_INTERVAL", cfg.Interval, validateInterval)
	cfg.Interval = interval.Value
	report("interval", "Interval", interval.FallbackApplied, interval.Warnings)

	highPending := config.LoadEnvBool("SAMPLER_HIGH_PENDING", cfg.HighPendingMode)
	cfg.HighPendingMode = highPending.Value
	report("high_pending", "HighPendingMode", highPending.FallbackApplied, highPending.Warnings)

	host := config.LoadEnvWithFallback("METRICS_HOST", cfg.MetricsHost, config.ValidateIPAddress)
	cfg.MetricsHost = host.Value
	report("metrics_host", "MetricsHost", host.FallbackApplied, host.Warnings)

	port := config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, validateMetricsPort)
	cfg.MetricsPort = port.Value
	report("metrics_port", "MetricsPort", port.FallbackApplied, port.Warnings)

	healthEnabled := config.LoadEnvBool("SAMPLER_HEALTH_ENABLED", cfg.HealthEnabled)
	cfg.HealthEnabled = healthEnabled.Value
	report("health_enabled", "HealthEnabled", healthEnabled.FallbackApplied, healthEnabled.Warnings)

	healthPort := config.LoadEnvInt("SAMPLER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		if err := validateHealthPort(v); err != nil {
			return err
		}
		if v == cfg.MetricsPort {
			return fmt.Errorf("port %d is already used by the metrics endpoint", v)
		}
		return nil
	})
	cfg.HealthPort = healthPort.Value
	report("health_port", "HealthPort", healthPort.FallbackApplied, healthPort.Warnings)

	profilePath := config.LoadEnvWithFallback("SAMPLER_PROFILE", cfg.ProfilePath, validateProfilePath)
	cfg.ProfilePath = profilePath.Value
	report("profile_path", "ProfilePath", profilePath.FallbackApplied, profilePath.Warnings)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()
	metrics.SetHighPendingMode(cfg.HighPendingMode)

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
