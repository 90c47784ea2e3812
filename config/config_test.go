package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(embeddedConfig)))

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	assert.Equal(t, "8080", cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 20, cfg.RateLimit.GeneratePerMinute)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:5173")
}

func TestApplyDefaults(t *testing.T) {
	t.Run("empty config gets documented defaults", func(t *testing.T) {
		var cfg Config
		cfg.applyDefaults()
		assert.Equal(t, DefaultBackendBaseURL, cfg.Backend.BaseURL)
		assert.Equal(t, "8080", cfg.Server.HTTPPort)
		assert.Equal(t, 10*time.Minute, cfg.Session.Cleanup)
		assert.Equal(t, "go-map-poster", cfg.Observability.ServiceName)
	})

	t.Run("trailing slash is trimmed from the backend base", func(t *testing.T) {
		var cfg Config
		cfg.Backend.BaseURL = " https://api.example.com/ "
		cfg.applyDefaults()
		assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	})
}

func TestInitConfig_EnvOverride(t *testing.T) {
	t.Setenv("POSTER_BACKEND_BASEURL", "https://posters.example.com/api/")

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://posters.example.com/api", cfg.Backend.BaseURL)
}
