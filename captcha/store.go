package captcha

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps codes in process. It is used when Redis is disabled.
type MemoryStore struct {
	mu    sync.Mutex
	codes *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: cache.New(5*time.Minute, 10*time.Minute)}
}

func (m *MemoryStore) Set(_ context.Context, id, code string, ttl time.Duration) error {
	m.codes.Set(id, code, ttl)
	return nil
}

func (m *MemoryStore) Take(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.codes.Get(id)
	if !ok {
		return "", ErrNoChallenge
	}
	m.codes.Delete(id)
	return v.(string), nil
}

// RedisStore keeps codes under captcha:<id> so every instance behind a load
// balancer can verify them.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(id string) string { return "captcha:" + id }

func (r *RedisStore) Set(ctx context.Context, id, code string, ttl time.Duration) error {
	return r.rdb.Set(ctx, redisKey(id), code, ttl).Err()
}

func (r *RedisStore) Take(ctx context.Context, id string) (string, error) {
	code, err := r.rdb.GetDel(ctx, redisKey(id)).Result()
	if err == redis.Nil {
		return "", ErrNoChallenge
	}
	return code, err
}
