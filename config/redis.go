package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisPingTimeout = 2 * time.Second

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// ConnectRedis dials Redis once when REDIS_ENABLED is set. A disabled Redis
// yields (nil, nil); a failed ping yields (nil, err) and later calls keep
// returning nil.
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		cfg := LoadConfig()
		if !cfg.RedisEnabled {
			log.Debug().Msg("redis disabled, using database and in-process stores")
			return
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			err = fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
			return
		}

		redisClient = rdb
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("connected to redis")
	})
	return redisClient, err
}

// GetRedisClient is nil until ConnectRedis succeeds.
func GetRedisClient() *redis.Client {
	return redisClient
}
