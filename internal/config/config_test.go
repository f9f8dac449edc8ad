package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/billswift_test",
		"REDIS_URL":    "redis://localhost:6379/1",
		"JWT_SECRET":   "test-secret",
		"PORT":         "",
		"APP_ENV":      "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, time.Minute, cfg.LoginRateWindow)
	require.Equal(t, 10, cfg.LoginRateMax)
}

func TestLoadRequiresCoreSettings(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/1",
		"JWT_SECRET":   "test-secret",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")

	_, err = LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/billswift_test",
		"REDIS_URL":    "redis://localhost:6379/1",
		"JWT_SECRET":   "",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost/billswift_test",
		"REDIS_URL":            "redis://localhost:6379/1",
		"JWT_SECRET":           "test-secret",
		"PORT":                 "9090",
		"ACCESS_TOKEN_TTL":     "45m",
		"LOGIN_RATE_MAX":       "3",
		"CORS_ALLOWED_ORIGINS": "https://billswift.example, https://staging.billswift.example",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 45*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 3, cfg.LoginRateMax)
	require.Equal(t, []string{"https://billswift.example", "https://staging.billswift.example"}, cfg.CORSAllowedOrigins)
}
