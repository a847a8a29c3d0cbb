package config

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
)

// RedisClient is a global Redis client instance
var RedisClient *redis.Client
//Accessed as config.RedisClient in other files

func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		RedisClient = nil
		return
	}
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		DB:       GetEnvInt("REDIS_DB", 0),
	})
}

// PingRedis disables the client when the server is unreachable.
func PingRedis(ctx context.Context) error {
	if RedisClient == nil {
		return nil
	}
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient = nil
		return err
	}
	return nil
}
