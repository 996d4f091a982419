package util

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/hospital-desk/config"
	"github.com/redis/go-redis/v9"
)

func sessionKey(token string) string { return fmt.Sprintf("session:%s", token) }

func userSessionsKey(userID uint) string { return fmt.Sprintf("user_sessions:%d", userID) }

// StoreSession mirrors a session into Redis as session:<token> -> "uid:rid"
// and tracks the token in the per-user set. It is a no-op without Redis.
func StoreSession(ctx context.Context, token string, userID uint, roleID uint32, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	val := fmt.Sprintf("%d:%d", userID, roleID)
	if err := rdb.Set(ctx, sessionKey(token), val, ttl).Err(); err != nil {
		return err
	}
	return AddSessionToUserSet(ctx, userID, token, ttl)
}

// AddSessionToUserSet adds the token to user_sessions:<id>. The set lives as
// long as the newest session in it.
func AddSessionToUserSet(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key, ttl).Err()
}

// ErrSessionNotCached means Redis has no entry for the token and the caller
// should consult the database.
var ErrSessionNotCached = errors.New("session not cached")

// LookupSession reads a mirrored session.
func LookupSession(ctx context.Context, token string) (uint, uint32, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, 0, ErrSessionNotCached
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, 0, ErrSessionNotCached
	}
	if err != nil {
		return 0, 0, err
	}
	return parseSessionValue(val)
}

func parseSessionValue(val string) (uint, uint32, error) {
	uidStr, ridStr, ok := strings.Cut(val, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed session value %q", val)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session user id: %w", err)
	}
	rid, err := strconv.ParseUint(ridStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed session role id: %w", err)
	}
	return uint(uid), uint32(rid), nil
}

// removeTokenScript drops the token and deletes the set once it is empty.
var removeTokenScript = redis.NewScript(`
local removed = redis.call('SREM', KEYS[1], ARGV[1])
if removed > 0 and redis.call('SCARD', KEYS[1]) == 0 then
	redis.call('DEL', KEYS[1])
end
return removed
`)

// RemoveSession deletes one mirrored session.
func RemoveSession(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return removeTokenScript.Run(ctx, rdb, []string{userSessionsKey(userID)}, token).Err()
}

// InvalidateUserSessions deletes every mirrored session of the user together
// with the per-user set.
func InvalidateUserSessions(ctx context.Context, userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	members, err := rdb.SMembers(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys := make([]string, 0, len(members)+1)
	for _, tok := range members {
		keys = append(keys, sessionKey(tok))
	}
	keys = append(keys, key)
	return rdb.Del(ctx, keys...).Err()
}
