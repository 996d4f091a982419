package config

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// SetRedisClientForTest installs client, usually a redismock client, as the
// shared Redis handle.
func SetRedisClientForTest(client *redis.Client) {
	redisClient = client
}

// ResetRedisClientForTest forgets the client so ConnectRedis dials again.
func ResetRedisClientForTest() {
	redisClient = nil
	redisOnce = sync.Once{}
}
