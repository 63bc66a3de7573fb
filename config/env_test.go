package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONITORED_LIMIT", "")
	t.Setenv("NOTIFICATION_COOLDOWN", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.MonitoredLimit)
	assert.Equal(t, 60*time.Second, cfg.NotificationCooldown)
	assert.Equal(t, 50.0, cfg.MaxAccuracyMeters)
	assert.Equal(t, 5000.0, cfg.GeocodeDistanceMeters)
	assert.Equal(t, 5*time.Minute, cfg.GeocodeCooldown)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONITORED_LIMIT", "15")
	t.Setenv("NOTIFICATION_COOLDOWN", "2m")
	t.Setenv("GEOCODE_DISTANCE_METERS", "2500.5")
	t.Setenv("MQTT_DEVICE_ID", "pixel-7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.MonitoredLimit)
	assert.Equal(t, 2*time.Minute, cfg.NotificationCooldown)
	assert.Equal(t, 2500.5, cfg.GeocodeDistanceMeters)
	assert.Equal(t, "pixel-7", cfg.MQTTDeviceID)
}

func TestLoad_Malformed(t *testing.T) {
	t.Setenv("MONITORED_LIMIT", "twenty")
	t.Setenv("GEOCODE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONITORED_LIMIT")
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(&Config{LogLevel: "loud", LogFormat: "json"})
	assert.Error(t, err)
}
