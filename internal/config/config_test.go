package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://delhihighcourt.nic.in", cfg.CourtBaseURL)
	assert.Equal(t, 2*time.Second, cfg.FetchDelay)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.EqualValues(t, 10485760, cfg.MaxPDFSize)
	assert.False(t, cfg.DownloadOnSearch)
	assert.True(t, cfg.HeadlessMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FETCH_DELAY", "5")
	t.Setenv("DOWNLOAD_ON_SEARCH", "true")
	t.Setenv("COURT_BASE_URL", "https://example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.FetchDelay)
	assert.True(t, cfg.DownloadOnSearch)
	assert.Equal(t, "https://example.org", cfg.CourtBaseURL)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestDebugForcesDebugLevel(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
