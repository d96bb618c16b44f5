package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contabilidad/backend/internal/domain/settings"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSettingsKeyPrefix = "contabilidad:settings:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisSettingsCache implements settings.Cache using Redis, shared by every
// server instance.
type RedisSettingsCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	keyPrefix  string
	logger     *zap.Logger
}

// RedisSettingsCacheOption is a functional option for configuring the cache
type RedisSettingsCacheOption func(*RedisSettingsCache)

// WithKeyPrefix sets the key prefix
func WithKeyPrefix(prefix string) RedisSettingsCacheOption {
	return func(c *RedisSettingsCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisSettingsCacheOption {
	return func(c *RedisSettingsCache) {
		c.logger = logger
	}
}

// NewRedisSettingsCache connects to Redis and checks the connection
func NewRedisSettingsCache(cfg RedisConfig, opts ...RedisSettingsCacheOption) (*RedisSettingsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisSettingsCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisSettingsCacheWithClient creates a cache with an existing Redis client.
// The caller keeps ownership of the client.
func NewRedisSettingsCacheWithClient(client *redis.Client, opts ...RedisSettingsCacheOption) *RedisSettingsCache {
	c := &RedisSettingsCache{
		client:    client,
		keyPrefix: defaultSettingsKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisSettingsCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get retrieves a tenant's settings from cache
func (c *RedisSettingsCache) Get(ctx context.Context, tenantID uuid.UUID) (*settings.AccountingSettings, error) {
	key := c.key(tenantID)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss for settings", zap.String("tenant_id", tenantID.String()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from cache: %w", err)
	}

	var s settings.AccountingSettings
	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn("Dropping corrupted settings cache entry",
			zap.String("key", key),
			zap.Error(err))
		_ = c.client.Del(ctx, key)
		return nil, nil
	}
	return &s, nil
}

// Set stores a tenant's settings
func (c *RedisSettingsCache) Set(ctx context.Context, s *settings.AccountingSettings, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = settings.DefaultCacheTTL
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := c.client.Set(ctx, c.key(s.TenantID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set settings in cache: %w", err)
	}
	return nil
}

// Delete removes a tenant's settings
func (c *RedisSettingsCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to delete settings from cache: %w", err)
	}
	return nil
}

// Close closes the client when the cache created it
func (c *RedisSettingsCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ settings.Cache = (*RedisSettingsCache)(nil)
