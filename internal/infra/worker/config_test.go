package worker

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplerEnvKeys = []string{
	"SAMPLER_INTERVAL",
	"SAMPLER_HIGH_PENDING",
	"METRICS_HOST",
	"METRICS_PORT",
	"SAMPLER_HEALTH_ENABLED",
	"SAMPLER_HEALTH_PORT",
	"SAMPLER_PROFILE",
}

// clearEnv unsets every sampler variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range samplerEnvKeys {
		t.Setenv(key, "")
	}
}

func newTestMetrics() *SamplerMetrics {
	return NewSamplerMetrics(prometheus.NewRegistry())
}

func TestDefaultConfig(t *testing.T) {
	want := SamplerConfig{
		Interval:    time.Second,
		MetricsHost: "0.0.0.0",
		MetricsPort: 8000,
		HealthPort:  8001,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultConfig_Immutability(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	config1.Interval = time.Minute
	config1.MetricsPort = 9000

	assert.Equal(t, time.Second, config2.Interval)
	assert.Equal(t, 8000, config2.MetricsPort)
}

func TestSamplerConfig_Addrs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:8000", cfg.MetricsAddr())
	assert.Equal(t, "0.0.0.0:8001", cfg.HealthAddr())

	cfg.MetricsHost = "::1"
	assert.Equal(t, "[::1]:8000", cfg.MetricsAddr())
}

func TestSamplerConfig_Validate(t *testing.T) {
	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("pending: {min: 1, max: 2}\n"), 0o600))

	tests := []struct {
		name    string
		mutate  func(c *SamplerConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *SamplerConfig) {}},
		{name: "interval lower bound", mutate: func(c *SamplerConfig) { c.Interval = time.Second }},
		{name: "interval upper bound", mutate: func(c *SamplerConfig) { c.Interval = time.Hour }},
		{name: "interval too short", mutate: func(c *SamplerConfig) { c.Interval = 500 * time.Millisecond }, wantErr: "interval"},
		{name: "interval too long", mutate: func(c *SamplerConfig) { c.Interval = 2 * time.Hour }, wantErr: "interval"},
		{name: "hostname rejected", mutate: func(c *SamplerConfig) { c.MetricsHost = "localhost" }, wantErr: "metrics host"},
		{name: "ipv6 host", mutate: func(c *SamplerConfig) { c.MetricsHost = "::" }},
		{name: "metrics port zero", mutate: func(c *SamplerConfig) { c.MetricsPort = 0 }, wantErr: "metrics port"},
		{name: "metrics port too high", mutate: func(c *SamplerConfig) { c.MetricsPort = 65536 }, wantErr: "metrics port"},
		{name: "privileged health port", mutate: func(c *SamplerConfig) { c.HealthPort = 80 }, wantErr: "health port"},
		{
			name:    "health port clash",
			mutate:  func(c *SamplerConfig) { c.HealthEnabled = true; c.HealthPort = 8000 },
			wantErr: "already used",
		},
		{
			name:   "clash ignored while health disabled",
			mutate: func(c *SamplerConfig) { c.HealthPort = 8000 },
		},
		{name: "existing profile", mutate: func(c *SamplerConfig) { c.ProfilePath = profile }},
		{name: "missing profile", mutate: func(c *SamplerConfig) { c.ProfilePath = profile + ".missing" }, wantErr: "profile path"},
		{name: "profile is a directory", mutate: func(c *SamplerConfig) { c.ProfilePath = filepath.Dir(profile) }, wantErr: "not a regular file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSamplerConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 0
	cfg.MetricsPort = -1
	cfg.HealthPort = 1

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"interval", "metrics port", "health port"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadConfigFromEnv_MissingEnvVars(t *testing.T) {
	clearEnv(t)
	metrics := newTestMetrics()

	cfg, err := LoadConfigFromEnv(slog.Default(), metrics)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	if diff := cmp.Diff(DefaultConfig(), *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.HighPendingMode))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	clearEnv(t)
	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("{}\n"), 0o600))

	t.Setenv("SAMPLER_INTERVAL", "5s")
	t.Setenv("SAMPLER_HIGH_PENDING", "true")
	t.Setenv("METRICS_HOST", "127.0.0.1")
	t.Setenv("METRICS_PORT", "9100")
	t.Setenv("SAMPLER_HEALTH_ENABLED", "true")
	t.Setenv("SAMPLER_HEALTH_PORT", "9101")
	t.Setenv("SAMPLER_PROFILE", profile)

	metrics := newTestMetrics()
	cfg, err := LoadConfigFromEnv(slog.Default(), metrics)
	require.NoError(t, err)

	want := SamplerConfig{
		Interval:        5 * time.Second,
		HighPendingMode: true,
		MetricsHost:     "127.0.0.1",
		MetricsPort:     9100,
		HealthEnabled:   true,
		HealthPort:      9101,
		ProfilePath:     profile,
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HighPendingMode))
}

func TestLoadConfigFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		value  string
		field  string
		label  string
		check  func(t *testing.T, cfg *SamplerConfig)
	}{
		{
			name: "interval below minimum", envKey: "SAMPLER_INTERVAL", value: "100ms",
			field: "interval", label: "Interval",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, time.Second, cfg.Interval) },
		},
		{
			name: "interval unparsable", envKey: "SAMPLER_INTERVAL", value: "soon",
			field: "interval", label: "Interval",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, time.Second, cfg.Interval) },
		},
		{
			name: "high pending not a bool", envKey: "SAMPLER_HIGH_PENDING", value: "yes",
			field: "high_pending", label: "HighPendingMode",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.False(t, cfg.HighPendingMode) },
		},
		{
			name: "metrics host is a name", envKey: "METRICS_HOST", value: "example.com",
			field: "metrics_host", label: "MetricsHost",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, "0.0.0.0", cfg.MetricsHost) },
		},
		{
			name: "metrics port out of range", envKey: "METRICS_PORT", value: "70000",
			field: "metrics_port", label: "MetricsPort",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, 8000, cfg.MetricsPort) },
		},
		{
			name: "health port privileged", envKey: "SAMPLER_HEALTH_PORT", value: "443",
			field: "health_port", label: "HealthPort",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, 8001, cfg.HealthPort) },
		},
		{
			name: "health port equals metrics port", envKey: "SAMPLER_HEALTH_PORT", value: "8000",
			field: "health_port", label: "HealthPort",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Equal(t, 8001, cfg.HealthPort) },
		},
		{
			name: "profile missing", envKey: "SAMPLER_PROFILE", value: "/nonexistent/profile.yaml",
			field: "profile_path", label: "ProfilePath",
			check: func(t *testing.T, cfg *SamplerConfig) { assert.Empty(t, cfg.ProfilePath) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envKey, tt.value)

			var logBuf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
			metrics := newTestMetrics()

			cfg, err := LoadConfigFromEnv(logger, metrics)
			require.NoError(t, err, "fail-open loading never errors")
			require.NotNil(t, cfg)
			tt.check(t, cfg)

			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues(tt.field)))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(tt.field)))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))

			logs := logBuf.String()
			assert.Contains(t, logs, "Configuration fallback applied")
			assert.Contains(t, logs, tt.label)
			assert.Contains(t, logs, tt.envKey)
		})
	}
}

func TestLoadConfigFromEnv_PartiallyValid(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAMPLER_INTERVAL", "2s")
	t.Setenv("METRICS_PORT", "not-a-port")
	t.Setenv("SAMPLER_HIGH_PENDING", "1")

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	metrics := newTestMetrics()

	cfg, err := LoadConfigFromEnv(logger, metrics)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 8000, cfg.MetricsPort)
	assert.True(t, cfg.HighPendingMode)

	assert.Equal(t, 1, strings.Count(logBuf.String(), "Configuration fallback applied"))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("interval")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("metrics_port")))
}

func TestLoadConfigFromEnv_DefaultHealthPortClashFailsValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("METRICS_PORT", "8001")

	cfg, err := LoadConfigFromEnv(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), newTestMetrics())
	require.NoError(t, err)
	require.Equal(t, 8001, cfg.MetricsPort)
	require.Equal(t, 8001, cfg.HealthPort)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by the metrics endpoint")

	cfg.HealthEnabled = false
	assert.NoError(t, cfg.Validate())
}
