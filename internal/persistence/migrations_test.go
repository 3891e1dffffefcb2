package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/config"
)

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, "does-not-exist", zap.NewNop()))
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRedisDisabled(t *testing.T) {
	r := NewRedis(config.RedisConfig{Enabled: false}, zap.NewNop())
	assert.Nil(t, r)
	assert.Error(t, r.Ping(context.Background()))
	assert.NotPanics(t, r.Close)
}
