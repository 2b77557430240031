package global

import (
	"context"
	"os"
	"strconv"

	"realchat/logger"
	"realchat/service/mgo"
	"realchat/service/storage"
	"realchat/tools/ids"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GatewayID() string { return env("GATEWAY_ID", "chat_gw-1") }

func ListenAddr() string { return env("LISTEN_ADDR", ":8080") }

func GetJwtSecret() []byte {
	return []byte(env("JWT_SECRET", "dev-only-secret-change-me"))
}

func ConfigIds() {
	node, _ := strconv.ParseInt(env("NODE_ID", "1"), 10, 64)
	ids.SetNodeID(node)
}

// ConfigRedis is best-effort: the presence mirror is an extension point,
// not a dependency of the in-process registry.
func ConfigRedis() {
	cfg := storage.Config{
		Addr:     env("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}
	if err := storage.InitRedis(cfg); err != nil {
		logger.Warnf("[config] redis unavailable, presence mirror disabled: %v", err)
	}
}

func ConfigMgo(ctx context.Context) error {
	cfg := &mgo.Config{
		Uri:         env("MONGO_URI", "mongodb://localhost:27017"),
		Database:    env("MONGO_DB", "realchat"),
		Username:    os.Getenv("MONGO_USER"),
		Password:    os.Getenv("MONGO_PASSWORD"),
		AuthSource:  env("MONGO_AUTH_SOURCE", "admin"),
		MaxPoolSize: 20,
		MaxRetry:    3,
	}
	return mgo.Init(ctx, cfg)
}
