package cache

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// unlockScript deletes a lock only when the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewCacheService connects to Redis. Callers treat a failure as "run without
// the channel cache and the in-flight lock".
func NewCacheService(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.RedisConfig.ReadyTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return &CacheService{
		client: client,
		logger: logger,
	}, nil
}

func prefixed(parts ...string) string {
	k := constants.RedisConfig.KeyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// Get decodes the value at key into dest. A missing key reports false.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("unmarshal failed", "get", key, err)
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

// GetChannelID returns a previously discovered channel id for a cleaned name.
func (c *CacheService) GetChannelID(ctx context.Context, name string) (string, bool) {
	var channelID string
	found, err := c.Get(ctx, prefixed("channel", name), &channelID)
	if err != nil || !found || channelID == "" {
		return "", false
	}
	return channelID, true
}

func (c *CacheService) SetChannelID(ctx context.Context, name, channelID string) {
	if err := c.Set(ctx, prefixed("channel", name), channelID, constants.CacheTTL.ChannelSearch); err != nil {
		c.logger.Warn("Failed to cache channel discovery", zap.String("name", name), zap.Error(err))
	}
}

// TryLock claims the in-flight marker for a slug. The returned release func
// is nil when another run already holds it.
func (c *CacheService) TryLock(ctx context.Context, slug string) (func(), error) {
	lockKey := prefixed("inflight", slug)
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, lockKey, token, constants.CacheTTL.InFlightLock).Result()
	if err != nil {
		return nil, errors.NewCacheError("lock failed", "setnx", lockKey, err)
	}
	if !ok {
		return nil, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RedisConfig.ReadyTimeout)
		defer cancel()
		if err := unlockScript.Run(ctx, c.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			c.logger.Warn("Failed to release in-flight lock", zap.String("slug", slug), zap.Error(err))
		}
	}
	return release, nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
