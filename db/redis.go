package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client

	ErrRedisDisabled = errors.New("redis not initialized")
)

// InitRedis initializes the Redis client connection
func InitRedis(cfg *config.Config) error {
	log.Println("🔌 Connecting to Redis...")

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURL,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	RedisClient = client
	log.Printf("✅ Redis connected successfully - URL: %s", cfg.RedisURL)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   INDEXER CURSOR
========================= */

// GetLastBlock returns the last fully indexed block. ok is false when no
// cursor has been stored yet.
func GetLastBlock(ctx context.Context) (block uint64, ok bool, err error) {
	if RedisClient == nil {
		return 0, false, ErrRedisDisabled
	}

	data, err := RedisClient.Get(ctx, config.RedisLastBlockKey).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last block: %w", err)
	}

	block, err = strconv.ParseUint(data, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt last block %q: %w", data, err)
	}
	return block, true, nil
}

// SetLastBlock stores the indexer cursor.
func SetLastBlock(ctx context.Context, block uint64) error {
	if RedisClient == nil {
		return ErrRedisDisabled
	}
	if err := RedisClient.Set(ctx, config.RedisLastBlockKey, block, 0).Err(); err != nil {
		return fmt.Errorf("failed to set last block: %w", err)
	}
	return nil
}

/* =========================
   PER GAME EVENT COUNTS
   Redis Key: arena:gid:{gid}:counts -> Hash{eventName: count}
========================= */

// CountEntries bumps the per game event counters in one pipeline.
func CountEntries(ctx context.Context, entries []*transcript.Entry) error {
	if RedisClient == nil {
		return ErrRedisDisabled
	}
	if len(entries) == 0 {
		return nil
	}

	pipe := RedisClient.TxPipeline()
	touched := make(map[string]bool)
	for _, e := range entries {
		gid, err := e.Instance()
		if err != nil {
			return err
		}
		name, err := e.Name()
		if err != nil {
			return err
		}
		hashKey := fmt.Sprintf(config.RedisGameCountsKey, gid)
		pipe.HIncrBy(ctx, hashKey, name, 1)
		touched[hashKey] = true
	}
	for hashKey := range touched {
		pipe.Expire(ctx, hashKey, config.GameCountsTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	return nil
}

// GetEventCounts returns event name -> count for a game.
func GetEventCounts(ctx context.Context, gid uint64) (map[string]int64, error) {
	if RedisClient == nil {
		return nil, ErrRedisDisabled
	}

	hashKey := fmt.Sprintf(config.RedisGameCountsKey, gid)
	data, err := RedisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get event counts: %w", err)
	}

	counts := make(map[string]int64, len(data))
	for name, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("⚠️  Bad count for %s in game %d: %v", name, gid, err)
			continue
		}
		counts[name] = n
	}
	return counts, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return ErrRedisDisabled
	}
	return RedisClient.Ping(ctx).Err()
}
