package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DEFAULT_ORG", "42")
	t.Setenv("AUTH_JWT_SECRET", "  s3cret ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_PERMISSIONS_RATE", "2.5")
	t.Setenv("DATABASE_TYPE", "sqlite")

	cfg := Load()

	assert.Equal(t, int64(42), cfg.DefaultOrgID)
	assert.Equal(t, "s3cret", cfg.AuthJWTSecret)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2.5, cfg.PermissionQueryRate)
	assert.Equal(t, 20, cfg.PermissionQueryBurst)
	assert.Equal(t, "sqlite", cfg.DBType)
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("DEFAULT_ORG", "not-a-number")
	t.Setenv("RATE_LIMIT_PERMISSIONS_RATE", "fast")

	cfg := Load()

	assert.Zero(t, cfg.DefaultOrgID)
	assert.Zero(t, cfg.PermissionQueryRate)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, Config{Environment: " Production "}.IsProduction())
	assert.False(t, Config{Environment: "staging"}.IsProduction())
}
