package config

// Redis backs distributed rate limiting, response caching and, with
// LOCK_BACKEND=redis, the per-resource lock shared by all instances.

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings read from REDIS_* variables.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// LoadRedisConfig reads:
//
//	REDIS_ENABLED  - "false" turns Redis off entirely (default true)
//	REDIS_ADDR     - host:port
//	REDIS_HOST and REDIS_PORT - take precedence over REDIS_ADDR when both set
//	REDIS_PASSWORD - optional password
//	REDIS_DB       - database number (default 0)
//	REDIS_TLS      - enable TLS when "true" or "1"
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Enabled:  envBool("REDIS_ENABLED", true),
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
		TLS:      envBool("REDIS_TLS", false),
	}
}

// NewRedisClient connects and pings.  Callers decide whether a failure is
// fatal (redis lock backend) or degrades to no cache and no rate limit.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		host, _, _ := strings.Cut(cfg.Addr, ":")
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
