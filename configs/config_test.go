package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_URI", "postgres://localhost/postflow")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://localhost/postflow", cfg.PostgresURI)
	assert.Equal(t, "s3cret", cfg.Cron.Secret)
	assert.Equal(t, "v21.0", cfg.Graph.APIVersion)
	assert.Equal(t, 2*time.Second, cfg.Publish.PollInterval)
	assert.Equal(t, 20, cfg.Publish.ImageAttempts)
	assert.Equal(t, 60, cfg.Publish.VideoAttempts)
	assert.True(t, cfg.Queue.WorkerEnabled)
	assert.Zero(t, cfg.Cron.FallbackInterval)
	assert.Equal(t, 15*time.Minute, cfg.Cron.JobTimeout)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Recurrence: Recurrence{Timezone: "Not/AZone"}}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Recurrence.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}
