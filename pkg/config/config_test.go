package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.ResetTimeout)
	assert.Equal(t, 2, cfg.Breaker.SuccessThreshold)

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, 0.1, cfg.Retry.JitterFactor)

	assert.NotEmpty(t, cfg.Connectivity.ProbeURL)
	assert.Equal(t, 15*time.Second, cfg.Connectivity.ProbeInterval)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "10")
	t.Setenv("BREAKER_RESET_TIMEOUT", "45s")
	t.Setenv("RETRY_MULTIPLIER", "1.5")
	t.Setenv("CONNECTIVITY_PROBE_URL", "https://probe.internal/health")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 45*time.Second, cfg.Breaker.ResetTimeout)
	assert.Equal(t, 1.5, cfg.Retry.Multiplier)
	assert.Equal(t, "https://probe.internal/health", cfg.Connectivity.ProbeURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "not-a-number")
	t.Setenv("BREAKER_RESET_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.ResetTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Breaker.FailureThreshold = 0 },
			wantErr: "failure threshold",
		},
		{
			name:    "zero success threshold",
			mutate:  func(c *Config) { c.Breaker.SuccessThreshold = 0 },
			wantErr: "success threshold",
		},
		{
			name:    "negative max retries",
			mutate:  func(c *Config) { c.Retry.MaxRetries = -1 },
			wantErr: "max retries",
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *Config) { c.Retry.Multiplier = 0.5 },
			wantErr: "multiplier",
		},
		{
			name:    "jitter above one",
			mutate:  func(c *Config) { c.Retry.JitterFactor = 1.5 },
			wantErr: "jitter factor",
		},
		{
			name:    "missing probe URL",
			mutate:  func(c *Config) { c.Connectivity.ProbeURL = "" },
			wantErr: "probe URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
