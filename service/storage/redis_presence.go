package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"realchat/tools/errs"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	rdb *redis.Client
	ctx = context.Background()
)

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(ctx).Err()
}

// presence key: chat:presence:<user>
// Value is the gateway id; TTL bounds staleness if a process dies without
// cleaning up. The in-process registry stays authoritative for fan-out —
// this mirror only exists so other processes can observe who is where.
func presenceKey(user string) string { return "chat:presence:" + user }

// PresenceOnline marks the user online on this gateway and renews the TTL.
func PresenceOnline(user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return errs.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// PresenceOffline deletes the presence key.
func PresenceOffline(user string) error {
	if rdb == nil {
		return errs.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the user is online anywhere and on which
// gateway.
func PresenceLookup(user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, errs.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
