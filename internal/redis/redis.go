package redis

import (
	"context"
	"fmt"
	"time"

	"feiyu/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

var client *goredis.Client

// Init 初始化Redis连接
func Init(cfg *config.RedisConfig) error {
	client = goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}

// GetClient 获取Redis客户端
func GetClient() *goredis.Client {
	return client
}

// Close 关闭Redis连接
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
