// Package cache 提供 Redis 客户端构造，供限流共享存储使用
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/spreadhub/pkg/logger"
)

// Config Redis 连接池配置；地址、密码与库号优先取自存储 URI
type Config struct {
	Addr         string
	Password     string
	DB           int
	MaxPoolSize  int
	ConnTimeout  int
	ReadTimeout  int
	WriteTimeout int
}

// Options 由 redis:// URI 与连接池配置生成客户端选项；uri 为空时使用 cfg 中的地址
func Options(uri string, cfg Config) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if uri != "" {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid redis uri: %w", err)
		}
		opts = parsed
		if opts.Password == "" {
			opts.Password = cfg.Password
		}
	}

	if cfg.MaxPoolSize > 0 {
		opts.PoolSize = cfg.MaxPoolSize
	}
	if cfg.ConnTimeout > 0 {
		opts.ConnMaxIdleTime = time.Duration(cfg.ConnTimeout) * time.Second
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	}
	return opts, nil
}

// New 创建客户端并测试连接
func New(ctx context.Context, uri string, cfg Config) (*redis.Client, error) {
	opts, err := Options(uri, cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info(ctx, "Redis connected successfully", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}
