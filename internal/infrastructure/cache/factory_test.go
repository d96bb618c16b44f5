package cache

import (
	"testing"

	"github.com/contabilidad/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// unreachableRedis points at a port nothing listens on
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
}

func TestSettingsCacheFactory_RedisDisabled(t *testing.T) {
	f := NewSettingsCacheFactory(config.RedisConfig{Enabled: false})

	c, err := f.CreateCache()
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &InMemorySettingsCache{}, c)
}

func TestSettingsCacheFactory_FallsBackWhenUnreachable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := NewSettingsCacheFactory(unreachableRedis(), WithLogger(zap.New(core)))

	c, err := f.CreateCache()
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &InMemorySettingsCache{}, c)
	assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
}

func TestSettingsCacheFactory_NoFallback(t *testing.T) {
	f := NewSettingsCacheFactory(unreachableRedis(), WithInMemoryFallback(false))

	c, err := f.CreateCache()
	assert.Error(t, err)
	assert.Nil(t, c)
}
