package config

// Redis backs the response cache and the rate limiter.  When the
// server cannot be reached at startup both degrade to no-ops.

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (or REDIS_ADDR),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.  Host and port win over
// REDIS_ADDR when both are set.
func LoadRedisConfig() RedisConfig {
	addr := getenv("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
		TLS:      envBool("REDIS_TLS", false),
	}
}

// NewRedisClient connects and pings with a short timeout.  It returns
// nil and the ping error when the server is unreachable.
func NewRedisClient(rc RedisConfig) (*redis.Client, error) {
	var tlsConf *tls.Config
	if rc.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
