package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_DOMAIN", "example.auth0.com")
	t.Setenv("AUTH_AUDIENCE", "bike-rental-api")
}

func TestNewDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := New()
	require.NoError(t, err)
	assert.True(t, cfg.HTTP.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "https://example.auth0.com/", cfg.Auth.Issuer)
	assert.Equal(t, "https://example.auth0.com/.well-known/jwks.json", cfg.Auth.JWKSURL)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "production", cfg.HTTP.Env)
	assert.Equal(t, 5, cfg.DB.MaxConns)
	assert.Equal(t, int64(1), cfg.Mongo.NodeID)
}

func TestNewOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", DriverMongo)
	t.Setenv("SNOWFLAKE_NODE", "7")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("HTTP_PUBLIC_URL", "https://rental.example.com")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, int64(7), cfg.Mongo.NodeID)
	assert.Equal(t, 5, cfg.DB.MaxConns)
	assert.Equal(t, "https://rental.example.com", cfg.HTTP.PublicURL)
}

func TestNewValidation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := New()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", DriverMemory)
	t.Setenv("AUTH_AUDIENCE", "")
	_, err = New()
	assert.Error(t, err)
}
