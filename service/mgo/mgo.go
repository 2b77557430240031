package mgo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realchat/tools/errs"
)

// Config represents the MongoDB configuration.
type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

type manager struct {
	mu sync.RWMutex
	db *mongo.Database
}

var globalMgr manager

// Init connects with bounded retry and keeps the database handle
// process-wide. Call once from main before serving traffic.
func Init(ctx context.Context, cfg *Config) error {
	if cfg.Uri == "" {
		return errs.New("mongo uri is required")
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 20
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}

	opts := options.Client().ApplyURI(cfg.Uri)
	opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return errs.WrapMsg(err, "failed to connect to MongoDB")
	}

	globalMgr.mu.Lock()
	globalMgr.db = cli.Database(cfg.Database)
	globalMgr.mu.Unlock()
	return nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("mongo not ready: call mgo.Init first")
	}
	return globalMgr.db
}
