package inits

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

func redisOptions(opts RedisOptions) *redis.Options {
	return &redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	}
}

// CreateRedisClient builds the shared client. An unreachable server is
// logged but not fatal: reads fall back to Postgres until it returns.
func CreateRedisClient(ctx context.Context, opts RedisOptions, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(redisOptions(opts))

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout+time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable at startup", zap.String("addr", opts.Addr), zap.Error(err))
		return rdb
	}
	logger.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return rdb
}

func CloseRedis(rdb *redis.Client, logger *zap.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("Error closing redis client", zap.Error(err))
	}
}
