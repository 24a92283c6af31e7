package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5001", cfg.Addr())
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, "traveltales", cfg.MongoDatabase)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 20, cfg.AuthRateLimit)
	assert.Zero(t, cfg.ReconcileInterval)
	assert.False(t, cfg.AllowAdminSignup)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:8081, http://localhost:19006 ,")
	t.Setenv("RECONCILE_INTERVAL", "10m")
	t.Setenv("ALLOW_ADMIN_SIGNUP", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"http://localhost:8081", "http://localhost:19006"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval)
	assert.True(t, cfg.AllowAdminSignup)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"bad redis db", map[string]string{"REDIS_DB": "one"}},
		{"bad ttl", map[string]string{"JWT_TTL": "forever"}},
		{"bad bool", map[string]string{"ALLOW_ADMIN_SIGNUP": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
