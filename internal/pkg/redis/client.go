package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/config"
)

var (
	client *redis.Client
	ctx    = context.Background()
	log    *zap.Logger
)

// Init initializes the Redis client
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "",
		DB:       cfg.Redis.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client = nil
		return err
	}

	log = zap.L().With(zap.String("component", "redis"))
	log.Info("Redis connected successfully",
		zap.String("addr", cfg.GetRedisAddr()))

	return nil
}

// Available reports whether a Redis connection was established.
func Available() bool {
	return client != nil
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// AcquireTrainingSlot atomically claims one of maxConcurrent training slots
// for the given user. Returns false when every slot is taken.
func AcquireTrainingSlot(userID int, maxConcurrent int) (bool, error) {
	if client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}

	key := trainingSlotKey(userID)

	// Lua script: atomically check and increment counter
	acquireScript := redis.NewScript(`
		local current = tonumber(redis.call('GET', KEYS[1]) or '0')
		local max_concurrent = tonumber(ARGV[1])
		if current < max_concurrent then
			redis.call('INCR', KEYS[1])
			redis.call('EXPIRE', KEYS[1], 3600)
			return 1
		else
			return 0
		end
	`)

	result, err := acquireScript.Run(ctx, client, []string{key}, maxConcurrent).Result()
	if err != nil {
		return false, err
	}

	acquired, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type")
	}

	return acquired == 1, nil
}

// ReleaseTrainingSlot releases a previously acquired training slot.
func ReleaseTrainingSlot(userID int) error {
	if client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	key := trainingSlotKey(userID)
	newCount, err := client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}

	// If count becomes 0 or negative, delete the key
	if newCount <= 0 {
		client.Del(ctx, key)
	}

	return nil
}

func trainingSlotKey(userID int) string {
	return fmt.Sprintf("training_slots:%d", userID)
}
